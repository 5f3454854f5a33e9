package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/sentinel/internal/review"
)

// JSONWriter outputs the validated findings as a JSON array. It writes
// nothing when there are no findings.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	if report == nil || len(report.Findings) == 0 {
		return nil
	}
	return writeJSON(w, report.Findings)
}

// ReportWriter outputs the full report as JSON.
type ReportWriter struct{}

func (r *ReportWriter) Write(w io.Writer, report *review.Report) error {
	return writeJSON(w, report)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
