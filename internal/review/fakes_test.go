package review

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/sentinel/internal/index"
	"github.com/dshills/sentinel/internal/providers"
)

type fakeSource struct {
	symbols map[string][]index.Symbol
	fail    map[string]bool
	calls   map[string]int
}

func (f *fakeSource) GetSymbols(_ context.Context, path string) ([]index.Symbol, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[path]++
	if f.fail[path] {
		return nil, errors.New("index unavailable")
	}
	return f.symbols[path], nil
}

type fakeEmbedder struct {
	err     error
	empty   bool
	lastIn  []string
	callCnt int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.callCnt++
	f.lastIn = texts
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeSearcher struct {
	matches   []index.Match
	err       error
	lastLimit int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, limit int) ([]index.Match, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.matches) > limit {
		return f.matches[:limit], nil
	}
	return f.matches, nil
}

// fakeGenerator answers with a fixed response per symbol file, or by
// default.
type fakeGenerator struct {
	response string
	err      error
	byPrompt func(user string) (string, error)
	requests []providers.Request
}

func (f *fakeGenerator) Name() string  { return "fake" }
func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) Generate(_ context.Context, req providers.Request) (providers.Response, error) {
	f.requests = append(f.requests, req)
	if f.byPrompt != nil {
		content, err := f.byPrompt(req.UserPrompt)
		return providers.Response{Content: content}, err
	}
	if f.err != nil {
		return providers.Response{}, f.err
	}
	return providers.Response{Content: f.response}, nil
}

type memCache struct {
	m map[string]string
}

func (c *memCache) Get(key string) (string, bool) {
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache) Put(key, response string) error {
	if c.m == nil {
		c.m = map[string]string{}
	}
	c.m[key] = response
	return nil
}

type countingRecorder struct {
	mu        sync.Mutex
	dropped   map[string]int
	validated int
	audited   int
	failures  map[string]int
}

func newRecorder() *countingRecorder {
	return &countingRecorder{dropped: map[string]int{}, failures: map[string]int{}}
}

func (r *countingRecorder) FindingDropped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped[reason]++
}

func (r *countingRecorder) FindingsValidated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validated += n
}

func (r *countingRecorder) SymbolAudited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audited++
}

func (r *countingRecorder) CollaboratorFailed(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[call]++
}

func intp(i int) *int { return &i }

func lineSet(lines ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(lines))
	for _, l := range lines {
		s[l] = struct{}{}
	}
	return s
}
