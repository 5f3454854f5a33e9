package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/sentinel/internal/review"
)

// Formats lists the accepted format names.
var Formats = []string{"json", "report", "text", "sarif"}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "", "json":
		return &JSONWriter{}, nil
	case "report":
		return &ReportWriter{}, nil
	case "text":
		return &TextWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is
// empty.
func WriteReport(stdout io.Writer, report *review.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = stdout
	}

	return writer.Write(w, report)
}
