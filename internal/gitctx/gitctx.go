package gitctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dshills/sentinel/internal/diffparse"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	// Dir is the working directory for git; empty means the process cwd.
	Dir          string
	ContextLines int
	Exclude      []string
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff  string
	Mode  string
	Range string
}

// Staged returns the diff of index vs HEAD.
func Staged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", "--cached"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return buildResult(diff, "staged", "", opts), nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return buildResult(diff, "unstaged", "", opts), nil
}

// Commit returns the diff introduced by a single commit.
func Commit(ctx context.Context, sha string, opts DiffOptions) (DiffResult, error) {
	args := buildDiffArgs(opts)
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", sha + "~1", sha}, args...)...)
	if err != nil {
		// Root commits have no parent.
		diff, err = gitOutput(ctx, opts.Dir, append([]string{"show", "--format=", sha}, args...)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
		}
	}
	return buildResult(diff, "commit", sha, opts), nil
}

// Range returns the combined diff for a revision range such as a..b.
func Range(ctx context.Context, revRange string, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", revRange}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(diff, "range", revRange, opts), nil
}

// FromFile reads a diff from path, or from stdin when path is "-".
func FromFile(path string, stdin io.Reader, opts DiffOptions) (DiffResult, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		if stdin == nil {
			return DiffResult{}, errors.New("no stdin to read the diff from")
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return DiffResult{}, fmt.Errorf("reading diff %s: %w", path, err)
	}
	return buildResult(string(data), "diff", "", opts), nil
}

// FromPR wraps a diff fetched from a pull request.
func FromPR(diff string, opts DiffOptions) DiffResult {
	return buildResult(diff, "pr", "", opts)
}

func buildDiffArgs(opts DiffOptions) []string {
	var args []string
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	return append(args, "--")
}

func buildResult(diff, mode, rangeStr string, opts DiffOptions) DiffResult {
	if len(opts.Exclude) > 0 {
		diff = filterExcluded(diff, opts.Exclude)
	}
	return DiffResult{Diff: diff, Mode: mode, Range: rangeStr}
}

func filterExcluded(diff string, excludes []string) string {
	sections := splitDiffSections(diff)
	var kept []string
	for _, section := range sections {
		path := sectionPath(section)
		if path == "" || !MatchesAny(path, excludes) {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "")
}

func splitDiffSections(diff string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

// sectionPath returns the new-file path named by a section's header, or ""
// for text before the first header.
func sectionPath(section string) string {
	header, _, _ := strings.Cut(section, "\n")
	path, _ := diffparse.HeaderPath(strings.TrimRight(header, "\r"))
	return path
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	// unquoted paths keep non-ASCII file names matchable
	args = append([]string{"-c", "core.quotePath=false"}, args...)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
