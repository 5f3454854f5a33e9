package index

import "context"

// SymbolSource returns the indexed symbols of one file. An unknown file
// yields an empty slice, not an error.
type SymbolSource interface {
	GetSymbols(ctx context.Context, path string) ([]Symbol, error)
}

// Searcher returns up to limit matches for vector, closest first.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Match, error)
}

// Store is a symbol index that can be rewritten one file at a time.
type Store interface {
	SymbolSource
	Searcher

	// ReplaceFile drops every symbol of path and stores symbols with their
	// embeddings. vectors is parallel to symbols.
	ReplaceFile(ctx context.Context, path string, symbols []Symbol, vectors [][]float32) error
	DeleteFile(ctx context.Context, path string) error
}

// HashStore records the content hash of each indexed file.
type HashStore interface {
	Hashes(ctx context.Context) (map[string]string, error)
	SetHash(ctx context.Context, path, hash string) error
	DeleteHash(ctx context.Context, path string) error
}
