// Package diffparse turns unified diff text into hunks anchored to absolute
// line numbers in the new version of each file.
//
// Parsing is a left fold over the input lines of an explicit parser state.
// Only added lines are recorded; context lines advance the new-file cursor and
// deleted lines are skipped. Hunks without additions are never emitted, since
// there is no new-file line a review comment could be attached to.
//
// Malformed fragments (content before any file or hunk header) are ignored
// rather than reported.
package diffparse
