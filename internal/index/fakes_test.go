package index

import (
	"context"
	"errors"
	"sync"
)

type memHashes struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemHashes(init map[string]string) *memHashes {
	m := make(map[string]string, len(init))
	for k, v := range init {
		m[k] = v
	}
	return &memHashes{m: m}
}

func (h *memHashes) Hashes(context.Context) (map[string]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.m))
	for k, v := range h.m {
		out[k] = v
	}
	return out, nil
}

func (h *memHashes) SetHash(_ context.Context, path, hash string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[path] = hash
	return nil
}

func (h *memHashes) DeleteHash(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.m, path)
	return nil
}

type memStore struct {
	files   map[string][]Symbol
	vectors map[string][][]float32
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]Symbol{}, vectors: map[string][][]float32{}}
}

func (s *memStore) GetSymbols(_ context.Context, path string) ([]Symbol, error) {
	return s.files[path], nil
}

func (s *memStore) Search(context.Context, []float32, int) ([]Match, error) {
	return nil, nil
}

func (s *memStore) ReplaceFile(_ context.Context, path string, syms []Symbol, vecs [][]float32) error {
	if path == s.failOn {
		return errors.New("store unavailable")
	}
	s.files[path] = syms
	s.vectors[path] = vecs
	return nil
}

func (s *memStore) DeleteFile(_ context.Context, path string) error {
	delete(s.files, path)
	delete(s.vectors, path)
	return nil
}

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}
