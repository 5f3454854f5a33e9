// Package output formats review results for display or machine consumption.
//
// Formats:
//   - json: the validated findings as a JSON array; nothing when empty (default)
//   - report: the full structured report as JSON
//   - text: human-readable terminal output
//   - sarif: SARIF v2.1.0 for code scanning uploads
//
// Use [GetWriter] to obtain a [Writer] for a format string, or [WriteReport]
// to also select the destination.
package output
