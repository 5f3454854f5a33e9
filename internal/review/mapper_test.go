package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/sentinel/internal/diffparse"
	"github.com/dshills/sentinel/internal/index"
)

func symbolAt(path, name string, start, end int) index.Symbol {
	return index.Symbol{
		ID: index.SymbolID(path, name), Name: name, Kind: index.KindFunction,
		StartLine: start, EndLine: end, FilePath: path, Snippet: "def " + name + "(): pass",
	}
}

func ids(syms []index.Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.ID
	}
	return out
}

func TestMapper_RangeOverlap(t *testing.T) {
	src := &fakeSource{symbols: map[string][]index.Symbol{
		"src/main.py": {symbolAt("src/main.py", "calc", 10, 20)},
	}}
	m := NewMapper(src, nil, nil)

	hit := m.Map(context.Background(), []diffparse.Hunk{{FilePath: "src/main.py", StartLine: 15, ChangedLines: []int{15}}})
	assert.Equal(t, []string{"src/main.py::calc"}, ids(hit))

	miss := m.Map(context.Background(), []diffparse.Hunk{{FilePath: "src/main.py", StartLine: 25, ChangedLines: []int{25}}})
	assert.Empty(t, miss)
}

func TestMapper_InclusiveBounds(t *testing.T) {
	src := &fakeSource{symbols: map[string][]index.Symbol{
		"a.py": {symbolAt("a.py", "f", 10, 20)},
	}}
	m := NewMapper(src, nil, nil)

	for _, line := range []int{10, 20} {
		got := m.Map(context.Background(), []diffparse.Hunk{{FilePath: "a.py", StartLine: line, ChangedLines: []int{line}}})
		assert.Len(t, got, 1, "line %d", line)
	}
	for _, line := range []int{9, 21} {
		got := m.Map(context.Background(), []diffparse.Hunk{{FilePath: "a.py", StartLine: line, ChangedLines: []int{line}}})
		assert.Empty(t, got, "line %d", line)
	}
}

func TestMapper_DedupeAndOrder(t *testing.T) {
	src := &fakeSource{symbols: map[string][]index.Symbol{
		"a.py": {
			symbolAt("a.py", "Outer", 1, 50),
			symbolAt("a.py", "inner", 10, 20),
			symbolAt("a.py", "tail", 40, 45),
		},
		"b.py": {symbolAt("b.py", "g", 1, 5)},
	}}
	m := NewMapper(src, nil, nil)

	hunks := []diffparse.Hunk{
		{FilePath: "a.py", StartLine: 41, ChangedLines: []int{41, 42}},
		{FilePath: "b.py", StartLine: 2, ChangedLines: []int{2}},
		{FilePath: "a.py", StartLine: 12, ChangedLines: []int{12, 13}},
	}
	got := m.Map(context.Background(), hunks)

	assert.Equal(t, []string{"a.py::Outer", "a.py::tail", "b.py::g", "a.py::inner"}, ids(got))
	assert.Equal(t, 1, src.calls["a.py"], "symbols of a file are read once per run")
}

func TestMapper_LookupFailureIsolated(t *testing.T) {
	src := &fakeSource{
		symbols: map[string][]index.Symbol{"ok.py": {symbolAt("ok.py", "f", 1, 10)}},
		fail:    map[string]bool{"broken.py": true},
	}
	rec := newRecorder()
	m := NewMapper(src, nil, rec)

	got := m.Map(context.Background(), []diffparse.Hunk{
		{FilePath: "broken.py", StartLine: 1, ChangedLines: []int{1}},
		{FilePath: "ok.py", StartLine: 2, ChangedLines: []int{2}},
	})

	assert.Equal(t, []string{"ok.py::f"}, ids(got))
	assert.Equal(t, 1, rec.failures["symbols"])
}

func TestMapper_NoHunks(t *testing.T) {
	m := NewMapper(&fakeSource{}, nil, nil)
	assert.Empty(t, m.Map(context.Background(), nil))
}
