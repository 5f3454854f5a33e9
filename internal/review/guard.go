package review

import (
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/sentinel/internal/diffparse"
)

var findingValidate = validator.New()

// SchemaGuard is the last filter before findings leave the process.
type SchemaGuard struct {
	log   hclog.Logger
	rec   Recorder
	hunks []diffparse.Hunk
}

// NewGuard returns a SchemaGuard.
func NewGuard(log hclog.Logger, rec Recorder) *SchemaGuard {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &SchemaGuard{log: log.Named("guard"), rec: rec}
}

// WithLines returns a copy of g that also rejects findings whose line was
// not added by hunks.
func (g *SchemaGuard) WithLines(hunks []diffparse.Hunk) *SchemaGuard {
	cp := *g
	cp.hunks = hunks
	return &cp
}

// Check returns the findings that name a changed file and a positive line,
// in input order, together with the number of drops per reason. It never
// fails; the worst case is an empty slice.
func (g *SchemaGuard) Check(changedFiles []string, findings []Finding) ([]ValidatedFinding, map[DropReason]int) {
	changed := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changed[f] = true
	}
	var valid map[string]map[int]struct{}
	if g.hunks != nil {
		valid = make(map[string]map[int]struct{})
		for _, f := range diffparse.ChangedFiles(g.hunks) {
			valid[f] = diffparse.ValidLines(g.hunks, f)
		}
	}

	out := make([]ValidatedFinding, 0, len(findings))
	drops := make(map[DropReason]int)
	for _, f := range findings {
		reason, ok := g.reject(f, changed, valid)
		if ok {
			drops[reason]++
			g.rec.FindingDropped(string(reason))
			g.log.Info("dropped finding", "reason", reason,
				"path", f.FilePath, "line", f.LineOrZero(), "symbol", f.SymbolID)
			continue
		}
		out = append(out, ValidatedFinding{v: checkedFinding{
			FilePath:   f.FilePath,
			Line:       *f.Line,
			Issue:      f.Issue,
			Severity:   f.Severity,
			Suggestion: f.Suggestion,
			SymbolID:   f.SymbolID,
		}})
	}
	g.rec.FindingsValidated(len(out))
	return out, drops
}

func (g *SchemaGuard) reject(f Finding, changed map[string]bool, valid map[string]map[int]struct{}) (DropReason, bool) {
	if err := findingValidate.Struct(f); err != nil {
		return DropMissingField, true
	}
	if !changed[f.FilePath] {
		return DropUntouchedFile, true
	}
	if err := findingValidate.Var(*f.Line, "gte=1"); err != nil {
		return DropNonPositiveLine, true
	}
	if valid != nil {
		if _, ok := valid[f.FilePath][*f.Line]; !ok {
			return DropLineOutsideValid, true
		}
	}
	return "", false
}

// Validate runs a default SchemaGuard over findings.
func Validate(changedFiles []string, findings []Finding) []ValidatedFinding {
	out, _ := NewGuard(nil, nil).Check(changedFiles, findings)
	return out
}
