package diffparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const fileHeaderPrefix = "diff --git "

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// Hunk is a contiguous block of additions in one file.
// ChangedLines are absolute new-file line numbers, strictly ascending and
// each at least StartLine.
type Hunk struct {
	FilePath     string `json:"file_path"`
	StartLine    int    `json:"start_line"`
	ChangedLines []int  `json:"changed_lines"`
}

// parserState is the accumulator threaded through the fold. It is passed and
// returned by value; nothing outside step and flush mutates it.
type parserState struct {
	file   string
	inHunk bool
	start  int
	cursor int
	lines  []int
}

// Parse returns the hunks of diff in file and hunk encounter order.
// Parsing the same text twice yields identical results.
func Parse(diff string) []Hunk {
	var hunks []Hunk
	var st parserState
	for _, line := range strings.Split(diff, "\n") {
		var h Hunk
		var ok bool
		st, h, ok = step(st, strings.TrimSuffix(line, "\r"))
		if ok {
			hunks = append(hunks, h)
		}
	}
	if h, ok, _ := flush(st); ok {
		hunks = append(hunks, h)
	}
	return hunks
}

// step consumes one line and returns the next state plus a completed hunk when
// the line closed one.
func step(st parserState, line string) (parserState, Hunk, bool) {
	if strings.HasPrefix(line, fileHeaderPrefix) {
		h, ok, next := flush(st)
		// an unreadable header yields "" so the file's content is skipped
		next.file, _ = HeaderPath(line)
		next.inHunk = false
		next.start, next.cursor = 0, 0
		return next, h, ok
	}

	if st.file == "" {
		return st, Hunk{}, false
	}

	if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return st, Hunk{}, false
		}
		h, ok, next := flush(st)
		next.inHunk = true
		next.start, next.cursor = start, start
		return next, h, ok
	}

	if !st.inHunk {
		// file header block: index, mode, ---/+++ path markers
		return st, Hunk{}, false
	}

	switch {
	case strings.HasPrefix(line, "+"):
		st.lines = append(st.lines, st.cursor)
		st.cursor++
	case strings.HasPrefix(line, " "), line == "":
		st.cursor++
	}
	return st, Hunk{}, false
}

// HeaderPath returns the new-file path of a "diff --git" header line. Paths
// that git quoted (non-ASCII or special characters) are unquoted.
func HeaderPath(line string) (string, bool) {
	paths, ok := strings.CutPrefix(line, fileHeaderPrefix)
	if !ok {
		return "", false
	}
	if strings.HasSuffix(paths, `"`) {
		i := strings.LastIndex(paths, ` "b/`)
		if i < 0 {
			return "", false
		}
		p, err := strconv.Unquote(paths[i+1:])
		if err != nil || !strings.HasPrefix(p, "b/") {
			return "", false
		}
		return strings.TrimPrefix(p, "b/"), true
	}
	if !strings.HasPrefix(paths, "a/") && !strings.HasPrefix(paths, `"a/`) {
		return "", false
	}
	i := strings.LastIndex(paths, " b/")
	if i < 0 || paths[i+3:] == "" {
		return "", false
	}
	return paths[i+3:], true
}

// flush closes the pending hunk. It reports a hunk only when at least one
// addition was recorded and always returns a state with an empty accumulator.
func flush(st parserState) (Hunk, bool, parserState) {
	lines := st.lines
	st.lines = nil
	if st.file == "" || len(lines) == 0 {
		return Hunk{}, false, st
	}
	return Hunk{
		FilePath:     st.file,
		StartLine:    st.start,
		ChangedLines: lines,
	}, true, st
}

// ChangedFiles returns the distinct files that have at least one hunk, in
// encounter order.
func ChangedFiles(hunks []Hunk) []string {
	seen := make(map[string]bool)
	var files []string
	for _, h := range hunks {
		if !seen[h.FilePath] {
			seen[h.FilePath] = true
			files = append(files, h.FilePath)
		}
	}
	return files
}

// ValidLines returns the union of changed lines over every hunk of path.
func ValidLines(hunks []Hunk, path string) map[int]struct{} {
	set := make(map[int]struct{})
	for _, h := range hunks {
		if h.FilePath != path {
			continue
		}
		for _, l := range h.ChangedLines {
			set[l] = struct{}{}
		}
	}
	return set
}

// SortedLines returns the members of a line set in ascending order.
func SortedLines(set map[int]struct{}) []int {
	lines := make([]int, 0, len(set))
	for l := range set {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}
