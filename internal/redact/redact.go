package redact

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// rules match credentials likely to appear in audited code or in the
// environment sentinel itself runs in.
var rules = []struct {
	name string
	re   *regexp.Regexp
}{
	{"key assignment", regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?[A-Za-z0-9/+=_-]{20,}["']?`)},
	{"secret assignment", regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["'][^"']{8,}["']`)},
	{"aws access key id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"bearer", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"private key", regexp.MustCompile(`-----BEGIN\s+([A-Z]+\s+)?PRIVATE KEY-----`)},
	{"github token", regexp.MustCompile(`(gh[pousr]|github_pat)_[A-Za-z0-9_]{36,}`)},
	{"openai key", regexp.MustCompile(`sk-(proj-)?[A-Za-z0-9_-]{20,}`)},
}

// Secrets replaces every credential-looking span of text with [REDACTED].
func Secrets(text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllLiteralString(text, placeholder)
	}
	return text
}

// Policy selects what is removed from text before it is sent to a model.
type Policy struct {
	Secrets bool
	// Paths are globs of files whose content is withheld entirely. A leading
	// "**/" matches at any depth.
	Paths []string
}

// Enabled reports whether p changes any text.
func (p Policy) Enabled() bool {
	return p.Secrets || len(p.Paths) > 0
}

// Withholds reports whether the content of file is withheld.
func (p Policy) Withholds(file string) bool {
	file = filepath.ToSlash(file)
	for _, g := range p.Paths {
		if matchGlob(g, file) {
			return true
		}
	}
	return false
}

// Apply redacts text that came from file.
func (p Policy) Apply(text, file string) string {
	if p.Withholds(file) {
		return placeholder + " (file content redacted by path policy)\n"
	}
	if p.Secrets {
		return Secrets(text)
	}
	return text
}

func matchGlob(pattern, file string) bool {
	rest, anyDepth := strings.CutPrefix(pattern, "**/")
	if !anyDepth {
		ok, _ := path.Match(pattern, file)
		return ok
	}
	segs := strings.Split(file, "/")
	for i := range segs {
		if ok, _ := path.Match(rest, strings.Join(segs[i:], "/")); ok {
			return true
		}
	}
	return false
}
