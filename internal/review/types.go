package review

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dshills/sentinel/internal/diffparse"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ParseSeverity normalises s; unknown values are returned upper-cased.
func ParseSeverity(s string) Severity {
	return Severity(strings.ToUpper(strings.TrimSpace(s)))
}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch ParseSeverity(string(s)) {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if strings.EqualFold(threshold, "none") || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// Finding is an untrusted review item as produced by the model. Line is nil
// when the model omitted it.
type Finding struct {
	FilePath   string   `json:"file_path" validate:"required"`
	Line       *int     `json:"line" validate:"required"`
	Issue      string   `json:"issue" validate:"required"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion,omitempty"`
	SymbolID   string   `json:"symbol_id,omitempty"`
}

// LineOrZero returns the finding's line, or 0 when absent.
func (f Finding) LineOrZero() int {
	if f.Line == nil {
		return 0
	}
	return *f.Line
}

// ValidatedFinding is a Finding that passed the schema guard. Values with
// content can only be produced by this package.
type ValidatedFinding struct {
	v checkedFinding
}

type checkedFinding struct {
	FilePath   string   `json:"file_path"`
	Line       int      `json:"line"`
	Issue      string   `json:"issue"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion,omitempty"`
	SymbolID   string   `json:"symbol_id,omitempty"`
}

func (f ValidatedFinding) FilePath() string   { return f.v.FilePath }
func (f ValidatedFinding) Line() int          { return f.v.Line }
func (f ValidatedFinding) Issue() string      { return f.v.Issue }
func (f ValidatedFinding) Severity() Severity { return f.v.Severity }
func (f ValidatedFinding) Suggestion() string { return f.v.Suggestion }
func (f ValidatedFinding) SymbolID() string   { return f.v.SymbolID }

// MarshalJSON encodes the finding with the same keys as Finding.
func (f ValidatedFinding) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.v)
}

// DropReason says why a finding was filtered out.
type DropReason string

const (
	DropMissingField     DropReason = "missing field"
	DropUntouchedFile    DropReason = "untouched file"
	DropNonPositiveLine  DropReason = "non-positive line"
	DropLineOutsideValid DropReason = "line outside valid set"
)

// Recoverable failure classes. They are logged and the affected unit of work
// degrades to an empty result.
var (
	ErrParse      = errors.New("parse error")
	ErrRetrieval  = errors.New("retrieval error")
	ErrGeneration = errors.New("generation error")
)

// InputInfo describes what was reviewed.
type InputInfo struct {
	Mode  string   `json:"mode"`
	Range string   `json:"range,omitempty"`
	PR    int      `json:"pr,omitempty"`
	Files []string `json:"files,omitempty"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Summary provides an overview of findings.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity"`
	SymbolsAudited  int            `json:"symbolsAudited"`
	Dropped         map[string]int `json:"dropped,omitempty"`
}

// Timing contains performance metrics.
type Timing struct {
	RetrievalMs  int64 `json:"retrievalMs"`
	GenerationMs int64 `json:"generationMs"`
	TotalMs      int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool     string               `json:"tool"`
	Version  string               `json:"version"`
	RunID    string               `json:"runId"`
	Inputs   InputInfo            `json:"inputs"`
	Stats    []diffparse.FileStat `json:"stats,omitempty"`
	Summary  Summary              `json:"summary"`
	Findings []ValidatedFinding   `json:"findings"`
	Timing   Timing               `json:"timing"`
}

// ComputeSummary calculates the severity part of a summary from findings.
func ComputeSummary(findings []ValidatedFinding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity() {
		case SeverityLow:
			s.Counts.Low++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityHigh:
			s.Counts.High++
		}
		if SeverityRank(f.Severity()) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity()
		}
	}
	return s
}

// Recorder receives audit counters. metrics.Metrics implements it.
type Recorder interface {
	FindingDropped(reason string)
	FindingsValidated(n int)
	SymbolAudited()
	CollaboratorFailed(call string)
}

type nopRecorder struct{}

func (nopRecorder) FindingDropped(string)     {}
func (nopRecorder) FindingsValidated(int)     {}
func (nopRecorder) SymbolAudited()            {}
func (nopRecorder) CollaboratorFailed(string) {}

// ResponseCache stores raw generation responses by key.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, response string) error
}
