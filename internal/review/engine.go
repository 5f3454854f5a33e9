package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/sentinel/internal/diffparse"
	"github.com/dshills/sentinel/internal/index"
	"github.com/dshills/sentinel/internal/providers"
	"github.com/dshills/sentinel/internal/redact"
)

const toolName = "sentinel"

// Deps are the collaborators of an Engine. Symbols, Searcher, Embedder and
// Generator are required.
type Deps struct {
	Symbols   index.SymbolSource
	Searcher  index.Searcher
	Embedder  providers.Embedder
	Generator providers.Generator
	Cache     ResponseCache
	Logger    hclog.Logger
	Recorder  Recorder
	Tracer    trace.Tracer

	ContextLimit int
	Redaction    redact.Policy
	Version      string
}

// Engine runs the audit pipeline over one diff.
type Engine struct {
	mapper    *Mapper
	retriever *Retriever
	auditor   *Auditor
	guard     *SchemaGuard
	log       hclog.Logger
	rec       Recorder
	tracer    trace.Tracer
	version   string
}

// NewEngine wires the pipeline stages from deps.
func NewEngine(deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/dshills/sentinel/internal/review")
	}
	opts := []AuditorOption{WithRedaction(deps.Redaction)}
	if deps.Cache != nil {
		opts = append(opts, WithCache(deps.Cache))
	}
	return &Engine{
		mapper:    NewMapper(deps.Symbols, log, rec),
		retriever: NewRetriever(deps.Embedder, deps.Searcher, deps.ContextLimit, log, rec),
		auditor:   NewAuditor(deps.Generator, log, rec, opts...),
		guard:     NewGuard(log, rec),
		log:       log,
		rec:       rec,
		tracer:    tracer,
		version:   deps.Version,
	}
}

// Input is the diff to audit and where it came from.
type Input struct {
	Diff  string
	Mode  string
	Range string
	PR    int
}

// Run audits every symbol touched by in.Diff, one at a time. A failing
// symbol contributes no findings and the run continues. Run only returns an
// error when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, in Input) (*Report, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "review.run")
	defer span.End()

	report := &Report{
		Tool:     toolName,
		Version:  e.version,
		RunID:    uuid.NewString(),
		Inputs:   InputInfo{Mode: in.Mode, Range: in.Range, PR: in.PR},
		Findings: []ValidatedFinding{},
	}
	span.SetAttributes(attribute.String("run.id", report.RunID))

	hunks := diffparse.Parse(in.Diff)
	files := diffparse.ChangedFiles(hunks)
	report.Inputs.Files = files
	if stats, err := diffparse.Stats(in.Diff); err != nil {
		e.log.Debug("diff stats unavailable", "error", fmt.Errorf("%w: %w", ErrParse, err))
	} else {
		report.Stats = stats
	}

	symbols := e.mapper.Map(ctx, hunks)
	e.log.Info("audit started", "run", report.RunID, "files", len(files), "hunks", len(hunks), "symbols", len(symbols))

	var findings []Finding
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("audit cancelled: %w", err)
		}
		findings = append(findings, e.auditSymbol(ctx, in.Diff, sym, hunks, &report.Timing)...)
		report.Summary.SymbolsAudited++
	}

	validated, drops := e.guard.Check(files, findings)
	report.Findings = validated

	counts := report.Summary.SymbolsAudited
	report.Summary = ComputeSummary(validated)
	report.Summary.SymbolsAudited = counts
	if len(drops) > 0 {
		report.Summary.Dropped = make(map[string]int, len(drops))
		for r, n := range drops {
			report.Summary.Dropped[string(r)] = n
		}
	}
	report.Timing.TotalMs = time.Since(start).Milliseconds()

	span.SetAttributes(attribute.Int("findings.validated", len(validated)))
	e.log.Info("audit finished", "run", report.RunID, "findings", len(validated), "ms", report.Timing.TotalMs)
	return report, nil
}

func (e *Engine) auditSymbol(ctx context.Context, diff string, sym index.Symbol, hunks []diffparse.Hunk, timing *Timing) []Finding {
	ctx, span := e.tracer.Start(ctx, "review.symbol", trace.WithAttributes(
		attribute.String("symbol.id", sym.ID),
		attribute.String("symbol.file", sym.FilePath),
	))
	defer span.End()
	defer e.rec.SymbolAudited()

	t := time.Now()
	matches := e.retriever.Retrieve(ctx, sym)
	timing.RetrievalMs += time.Since(t).Milliseconds()
	span.SetAttributes(attribute.Int("context.matches", len(matches)))

	t = time.Now()
	findings := e.auditor.Audit(ctx, AuditRequest{
		Diff:       diff,
		Symbol:     sym,
		Context:    matches,
		ValidLines: diffparse.ValidLines(hunks, sym.FilePath),
	})
	timing.GenerationMs += time.Since(t).Milliseconds()
	span.SetAttributes(attribute.Int("findings.raw", len(findings)))
	return findings
}
