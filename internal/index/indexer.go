package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/sentinel/internal/providers"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 64
)

// Indexer keeps a Store in sync with the source files under a directory.
type Indexer struct {
	store     Store
	hashes    HashStore
	embedder  providers.Embedder
	log       hclog.Logger
	workers   int
	batchSize int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithWorkers bounds how many files are parsed concurrently.
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithBatchSize sets how many snippets are sent per embedding call.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// NewIndexer returns an Indexer writing to store.
func NewIndexer(store Store, hashes HashStore, embedder providers.Embedder, log hclog.Logger, opts ...Option) *Indexer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	ix := &Indexer{
		store:     store,
		hashes:    hashes,
		embedder:  embedder,
		log:       log.Named("indexer"),
		workers:   defaultWorkers,
		batchSize: defaultBatchSize,
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// Result summarises one indexing run.
type Result struct {
	Files   int      `json:"files"`
	Symbols int      `json:"symbols"`
	Removed int      `json:"removed"`
	Failed  []string `json:"failed,omitempty"`
}

type parsedFile struct {
	symbols []Symbol
	err     error
}

// Run indexes every new or modified file under root and forgets files that
// were removed. A file's hash is recorded only after its symbols were stored,
// so a failed file is retried on the next run.
func (ix *Indexer) Run(ctx context.Context, root string) (Result, error) {
	scan, err := NewScanner(ix.hashes).Scan(ctx, root)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, p := range scan.Removed {
		if err := ix.store.DeleteFile(ctx, p); err != nil {
			ix.log.Warn("failed to delete symbols of removed file", "path", p, "error", err)
			res.Failed = append(res.Failed, p)
			continue
		}
		if err := ix.hashes.DeleteHash(ctx, p); err != nil {
			return res, fmt.Errorf("forgetting hash of %s: %w", p, err)
		}
		res.Removed++
	}

	parsed := make([]parsedFile, len(scan.Changed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, f := range scan.Changed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
			if err != nil {
				parsed[i] = parsedFile{err: err}
				return nil
			}
			syms, err := ParseFile(gctx, f.Path, src)
			parsed[i] = parsedFile{symbols: syms, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for i, f := range scan.Changed {
		if parsed[i].err != nil {
			ix.log.Warn("failed to parse file", "path", f.Path, "error", parsed[i].err)
			res.Failed = append(res.Failed, f.Path)
			continue
		}
		syms := parsed[i].symbols
		vectors, err := ix.embed(ctx, syms)
		if err != nil {
			ix.log.Warn("failed to embed symbols", "path", f.Path, "error", err)
			res.Failed = append(res.Failed, f.Path)
			continue
		}
		if err := ix.store.ReplaceFile(ctx, f.Path, syms, vectors); err != nil {
			ix.log.Warn("failed to store symbols", "path", f.Path, "error", err)
			res.Failed = append(res.Failed, f.Path)
			continue
		}
		if err := ix.hashes.SetHash(ctx, f.Path, f.Hash); err != nil {
			return res, fmt.Errorf("recording hash of %s: %w", f.Path, err)
		}
		ix.log.Debug("indexed file", "path", f.Path, "symbols", len(syms))
		res.Files++
		res.Symbols += len(syms)
	}
	return res, nil
}

func (ix *Indexer) embed(ctx context.Context, syms []Symbol) ([][]float32, error) {
	vectors := make([][]float32, 0, len(syms))
	for start := 0; start < len(syms); start += ix.batchSize {
		end := min(start+ix.batchSize, len(syms))
		texts := make([]string, 0, end-start)
		for _, s := range syms[start:end] {
			texts = append(texts, s.Snippet)
		}
		batch, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
