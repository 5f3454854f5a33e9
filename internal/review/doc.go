// Package review runs the audit pipeline over a diff.
//
// The [Engine] parses the diff once, maps its hunks to indexed symbols
// ([Mapper]), fetches similar code for each symbol ([Retriever]), asks the
// generator for findings ([Auditor]) and passes everything through the
// [SchemaGuard] before building a [Report]. Symbols are processed one at a
// time; a failing symbol contributes nothing and the run continues.
//
// Only the guard can produce a non-empty [ValidatedFinding], and the output
// and posting layers accept nothing else. Every dropped finding is logged and
// counted with its [DropReason].
package review
