// Sentinel is a symbol-aware AI code auditor for diffs.
//
// It indexes the functions and classes of a repository, maps each diff hunk
// to the symbols it touches, and asks a model to audit those symbols with
// similar code as context. Only findings that point at lines the diff added
// are reported, as JSON for CI or as inline comments on a GitHub pull request.
//
// Usage:
//
//	sentinel index                          # index the working directory
//	sentinel audit --diff-file change.diff  # audit a diff file (- for stdin)
//	sentinel audit staged                   # audit staged changes
//	sentinel audit range origin/main..HEAD  # audit a revision range
//	sentinel audit --pr 42 --post           # audit and comment on a pull request
package main
