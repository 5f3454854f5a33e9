package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/dshills/sentinel/internal/review"
)

const informationURI = "https://github.com/dshills/sentinel"

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	doc, err := buildSARIF(report)
	if err != nil {
		return err
	}
	if err := doc.PrettyWrite(w); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	return nil
}

func buildSARIF(report *review.Report) (*sarif.Report, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("sentinel", informationURI)
	if report.Version != "" {
		v := report.Version
		run.Tool.Driver.Version = &v
	}

	for _, f := range report.Findings {
		level := severityToLevel(f.Severity())
		rule := run.AddRule(ruleID(f.Severity())).
			WithDescription(fmt.Sprintf("%s severity review finding", severityLabel(f.Severity()))).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.FilePath())).
				WithRegion(sarif.NewRegion().WithStartLine(f.Line())),
		)

		msg := f.Issue()
		if f.Suggestion() != "" {
			msg += "\nSuggestion: " + f.Suggestion()
		}
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel(level).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}
	doc.AddRun(run)
	return doc, nil
}

func severityLabel(s review.Severity) string {
	if s == "" {
		return "UNRATED"
	}
	return string(s)
}

func ruleID(s review.Severity) string {
	return "sentinel/" + strings.ToLower(severityLabel(s))
}

// severityToLevel maps a finding severity to a SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityHigh:
		return "error"
	case review.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
