package output

import (
	"testing"

	"github.com/dshills/sentinel/internal/review"
)

func line(n int) *int { return &n }

func sampleReport(t *testing.T) *review.Report {
	t.Helper()
	findings := review.Validate([]string{"src/main.py", "db/query.py"}, []review.Finding{
		{FilePath: "src/main.py", Line: line(12), Issue: "Division by zero when b is 0", Severity: review.SeverityHigh, Suggestion: "Guard b", SymbolID: "src/main.py::calculate_total"},
		{FilePath: "db/query.py", Line: line(42), Issue: "User input is not sanitized", Severity: review.SeverityMedium},
		{FilePath: "src/main.py", Line: line(3), Issue: "Unused import", Severity: review.SeverityLow},
	})
	if len(findings) != 3 {
		t.Fatalf("validated %d findings, want 3", len(findings))
	}
	return &review.Report{
		Tool:     "sentinel",
		Version:  "1.0",
		RunID:    "test-run",
		Inputs:   review.InputInfo{Mode: "staged", Files: []string{"src/main.py", "db/query.py"}},
		Summary:  review.ComputeSummary(findings),
		Findings: findings,
	}
}

func emptyReport() *review.Report {
	return &review.Report{
		Tool:     "sentinel",
		Version:  "1.0",
		Inputs:   review.InputInfo{Mode: "diff"},
		Findings: []review.ValidatedFinding{},
	}
}
