package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dshills/sentinel/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	total := report.Summary.Counts.High + report.Summary.Counts.Medium + report.Summary.Counts.Low
	ew.printf("Sentinel Review: %s mode\n", report.Inputs.Mode)
	if report.Inputs.Range != "" {
		ew.printf("Range: %s\n", report.Inputs.Range)
	}
	if report.Inputs.PR > 0 {
		ew.printf("Pull request: #%d\n", report.Inputs.PR)
	}
	ew.printf("Files: %d changed, %d symbols audited\n",
		len(report.Inputs.Files), report.Summary.SymbolsAudited)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d total", len(report.Findings))
	if total > 0 {
		ew.printf(" (%d high, %d medium, %d low)",
			report.Summary.Counts.High,
			report.Summary.Counts.Medium,
			report.Summary.Counts.Low,
		)
	}
	ew.println("")
	if len(report.Summary.Dropped) > 0 {
		reasons := make([]string, 0, len(report.Summary.Dropped))
		for r := range report.Summary.Dropped {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		parts := make([]string, len(reasons))
		for i, r := range reasons {
			parts[i] = fmt.Sprintf("%s: %d", r, report.Summary.Dropped[r])
		}
		ew.printf("Dropped: %s\n", strings.Join(parts, ", "))
	}
	ew.println(strings.Repeat("─", 60))

	if len(report.Findings) == 0 {
		ew.println("\nNo issues found.")
		return ew.err
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range []review.Severity{review.SeverityHigh, review.SeverityMedium, review.SeverityLow, ""} {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), severityLabel(sev))
		ew.println(strings.Repeat("─", 40))

		sort.SliceStable(findings, func(i, j int) bool {
			if findings[i].FilePath() != findings[j].FilePath() {
				return findings[i].FilePath() < findings[j].FilePath()
			}
			return findings[i].Line() < findings[j].Line()
		})

		for _, f := range findings {
			ew.printf("\n  %s:%d", f.FilePath(), f.Line())
			if f.SymbolID() != "" {
				ew.printf("  (%s)", f.SymbolID())
			}
			ew.println("")
			for _, line := range wrapText(f.Issue(), 70) {
				ew.printf("    %s\n", line)
			}
			if f.Suggestion() != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(f.Suggestion(), 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (retrieval: %dms, generation: %dms)\n",
		report.Timing.TotalMs, report.Timing.RetrievalMs, report.Timing.GenerationMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// groupBySeverity buckets findings; unknown severities share the "" bucket.
func groupBySeverity(findings []review.ValidatedFinding) map[review.Severity][]review.ValidatedFinding {
	m := make(map[review.Severity][]review.ValidatedFinding)
	for _, f := range findings {
		sev := f.Severity()
		if review.SeverityRank(sev) == 0 {
			sev = ""
		}
		m[sev] = append(m[sev], f)
	}
	return m
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
