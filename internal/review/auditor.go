package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/sentinel/internal/cache"
	"github.com/dshills/sentinel/internal/diffparse"
	"github.com/dshills/sentinel/internal/index"
	"github.com/dshills/sentinel/internal/providers"
	"github.com/dshills/sentinel/internal/redact"
)

// AuditRequest is everything the model sees for one symbol.
type AuditRequest struct {
	Diff       string
	Symbol     index.Symbol
	Context    []index.Match
	ValidLines map[int]struct{}
}

// Auditor asks the generator for findings on one symbol and bounds the
// answer to the lines the diff actually added.
type Auditor struct {
	gen       providers.Generator
	cache     ResponseCache
	redaction redact.Policy
	maxTokens int
	log       hclog.Logger
	rec       Recorder
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithCache serves and stores responses through c.
func WithCache(c ResponseCache) AuditorOption {
	return func(a *Auditor) { a.cache = c }
}

// WithRedaction applies p to the diff and every snippet in the prompt.
func WithRedaction(p redact.Policy) AuditorOption {
	return func(a *Auditor) { a.redaction = p }
}

// NewAuditor returns an Auditor calling gen.
func NewAuditor(gen providers.Generator, log hclog.Logger, rec Recorder, opts ...AuditorOption) *Auditor {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	a := &Auditor{gen: gen, maxTokens: 4096, log: log.Named("auditor"), rec: rec}
	for _, o := range opts {
		o(a)
	}
	return a
}

// rawReview mirrors one item of the model's "reviews" array.
type rawReview struct {
	Line       *int   `json:"line"`
	Issue      string `json:"issue"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

type rawResponse struct {
	Reviews *[]rawReview `json:"reviews"`
}

// Audit returns the findings for req. Any generation or decoding failure
// yields no findings. Findings on lines outside req.ValidLines are dropped.
func (a *Auditor) Audit(ctx context.Context, req AuditRequest) []Finding {
	res, err := a.generate(ctx, req)
	if err != nil {
		a.log.Warn("generation failed", "symbol", req.Symbol.ID, "error", err)
		return nil
	}

	reviews, err := parseReviews(res.content)
	if err != nil {
		a.rec.CollaboratorFailed("decode")
		a.log.Warn("discarding non-conforming response", "symbol", req.Symbol.ID, "error", err)
		return nil
	}
	// cache only responses that decode
	if a.cache != nil && !res.cached {
		if err := a.cache.Put(res.key, res.content); err != nil {
			a.log.Warn("failed to write cache", "error", err)
		}
	}

	findings := make([]Finding, 0, len(reviews))
	for _, r := range reviews {
		f := Finding{
			FilePath:   req.Symbol.FilePath,
			Line:       r.Line,
			Issue:      r.Issue,
			Severity:   ParseSeverity(r.Severity),
			Suggestion: r.Suggestion,
			SymbolID:   req.Symbol.ID,
		}
		if f.Line != nil {
			if _, ok := req.ValidLines[*f.Line]; !ok {
				a.rec.FindingDropped(string(DropLineOutsideValid))
				a.log.Info("dropped finding", "reason", DropLineOutsideValid,
					"path", f.FilePath, "line", *f.Line, "symbol", f.SymbolID)
				continue
			}
		}
		findings = append(findings, f)
	}
	return findings
}

// generation is one model answer and the cache key it belongs to.
type generation struct {
	content string
	key     string
	cached  bool
}

func (a *Auditor) generate(ctx context.Context, req AuditRequest) (generation, error) {
	diff := req.Diff
	sym := req.Symbol
	matches := req.Context
	if a.redaction.Enabled() {
		if a.redaction.Secrets {
			diff = redact.Secrets(diff)
		}
		sym.Snippet = a.redaction.Apply(sym.Snippet, sym.FilePath)
		matches = make([]index.Match, len(req.Context))
		for i, m := range req.Context {
			m.Snippet = a.redaction.Apply(m.Snippet, m.FilePath)
			matches[i] = m
		}
	}

	system := SystemPrompt()
	user := BuildUserPrompt(diff, sym, matches, diffparse.SortedLines(req.ValidLines))

	key := cache.Key(a.gen.Name(), a.gen.Model(), system, user)
	if a.cache != nil {
		if hit, ok := a.cache.Get(key); ok {
			a.log.Debug("cache hit", "symbol", sym.ID)
			return generation{content: hit, key: key, cached: true}, nil
		}
	}

	resp, err := a.gen.Generate(ctx, providers.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    a.maxTokens,
		JSON:         true,
	})
	if err != nil {
		a.rec.CollaboratorFailed("generate")
		return generation{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return generation{content: resp.Content, key: key}, nil
}

// parseReviews decodes a {"reviews": [...]} object, tolerating a markdown
// code fence around it.
func parseReviews(content string) ([]rawReview, error) {
	content = stripFences(content)

	var raw rawResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrGeneration, err)
	}
	if raw.Reviews == nil {
		return nil, fmt.Errorf("%w: missing \"reviews\" key", ErrGeneration)
	}
	return *raw.Reviews, nil
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
