package review

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/sentinel/internal/index"
	"github.com/dshills/sentinel/internal/providers"
)

// DefaultContextLimit is the number of similar snippets fetched per symbol.
const DefaultContextLimit = 3

// Retriever finds code similar to a symbol to give the model context.
type Retriever struct {
	embedder providers.Embedder
	searcher index.Searcher
	limit    int
	log      hclog.Logger
	rec      Recorder
}

// NewRetriever returns a Retriever returning at most limit matches. A
// non-positive limit selects DefaultContextLimit.
func NewRetriever(embedder providers.Embedder, searcher index.Searcher, limit int, log hclog.Logger, rec Recorder) *Retriever {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Retriever{embedder: embedder, searcher: searcher, limit: limit, log: log.Named("retriever"), rec: rec}
}

// Retrieve returns up to the configured number of matches closest to sym,
// excluding sym itself. Any failure yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, sym index.Symbol) []index.Match {
	matches, err := r.retrieve(ctx, sym)
	if err != nil {
		r.log.Warn("context retrieval failed", "symbol", sym.ID, "error", err)
		return []index.Match{}
	}
	return matches
}

func (r *Retriever) retrieve(ctx context.Context, sym index.Symbol) ([]index.Match, error) {
	if sym.ID == "" || sym.Snippet == "" {
		return nil, fmt.Errorf("%w: symbol has no id or snippet", ErrRetrieval)
	}

	vectors, err := r.embedder.Embed(ctx, []string{sym.Snippet})
	if err != nil {
		r.rec.CollaboratorFailed("embed")
		return nil, fmt.Errorf("%w: embedding: %w", ErrRetrieval, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vector", ErrRetrieval)
	}

	// one extra result because the symbol usually finds itself
	found, err := r.searcher.Search(ctx, vectors[0], r.limit+1)
	if err != nil {
		r.rec.CollaboratorFailed("search")
		return nil, fmt.Errorf("%w: search: %w", ErrRetrieval, err)
	}

	out := make([]index.Match, 0, r.limit)
	for _, m := range found {
		if m.ID == sym.ID {
			continue
		}
		out = append(out, m)
		if len(out) == r.limit {
			break
		}
	}
	return out, nil
}
