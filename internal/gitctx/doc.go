// Package gitctx collects the unified diff to audit.
//
// Diffs come from a file or stdin, or from git itself (staged changes, a
// single commit, or a revision range) by shelling out to the git binary.
// Files matching exclude globs are cut from the diff before it is parsed.
package gitctx
