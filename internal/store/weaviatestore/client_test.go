package weaviatestore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sentinel/internal/index"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeWeaviate answers the REST and GraphQL endpoints the store uses.
type fakeWeaviate struct {
	mu        sync.Mutex
	requests  []recordedRequest
	hasClass  bool
	graphql   string
	batchFail bool
}

func (f *fakeWeaviate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/v1/meta":
		w.Write([]byte(`{"version":"1.35.2"}`))
	case r.URL.Path == "/v1/.well-known/ready":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/v1/schema/"+DefaultClassName && r.Method == http.MethodGet:
		if !f.hasClass {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(Schema(DefaultClassName))
	case r.URL.Path == "/v1/schema/"+DefaultClassName && r.Method == http.MethodDelete:
		f.hasClass = false
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/v1/schema" && r.Method == http.MethodPost:
		f.hasClass = true
		w.Write(body)
	case r.URL.Path == "/v1/graphql":
		w.Write([]byte(f.graphql))
	case r.URL.Path == "/v1/batch/objects" && r.Method == http.MethodDelete:
		w.Write([]byte(`{"match":{"class":"SentinelSymbol"},"results":{"matches":2,"successful":2,"failed":0}}`))
	case r.URL.Path == "/v1/batch/objects" && r.Method == http.MethodPost:
		var req struct {
			Objects []struct {
				Class string `json:"class"`
				ID    string `json:"id"`
			} `json:"objects"`
		}
		json.Unmarshal(body, &req)
		out := make([]map[string]any, len(req.Objects))
		for i, o := range req.Objects {
			result := map[string]any{}
			if f.batchFail && i == 0 {
				result["errors"] = map[string]any{"error": []map[string]any{{"message": "vector length mismatch"}}}
			}
			out[i] = map[string]any{"class": o.Class, "id": o.ID, "result": result}
		}
		json.NewEncoder(w).Encode(out)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeWeaviate) find(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.method == method && r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func openFake(t *testing.T, fake *fakeWeaviate) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := Open(context.Background(), Options{URL: srv.URL})
	require.NoError(t, err)
	return s
}

func TestOpen_CreatesMissingClass(t *testing.T) {
	fake := &fakeWeaviate{}
	openFake(t, fake)

	created := fake.find(http.MethodPost, "/v1/schema")
	require.Len(t, created, 1)
	assert.Contains(t, created[0].body, `"class":"SentinelSymbol"`)
	assert.Contains(t, created[0].body, `"vectorizer":"none"`)
}

func TestOpen_KeepsExistingClass(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true}
	openFake(t, fake)
	assert.Empty(t, fake.find(http.MethodPost, "/v1/schema"))
}

func TestGetSymbols(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true, graphql: `{"data":{"Get":{"SentinelSymbol":[
		{"symbolId":"src/a.py::g","name":"g","kind":"function","filePath":"src/a.py","startLine":20,"endLine":25,"snippet":"def g(): pass"},
		{"symbolId":"src/a.py::f","name":"f","kind":"function","filePath":"src/a.py","startLine":1,"endLine":5,"snippet":"def f(): pass"}
	]}}}`}
	s := openFake(t, fake)

	syms, err := s.GetSymbols(context.Background(), "src/a.py")
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "src/a.py::f", syms[0].ID, "sorted by start line")
	assert.Equal(t, 20, syms[1].StartLine)
	assert.Equal(t, index.SymbolKind("function"), syms[1].Kind)

	queries := fake.find(http.MethodPost, "/v1/graphql")
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0].body, "filePath")
	assert.Contains(t, queries[0].body, "src/a.py")
}

func TestGetSymbols_GraphQLError(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true, graphql: `{"errors":[{"message":"no such class"}]}`}
	s := openFake(t, fake)

	_, err := s.GetSymbols(context.Background(), "src/a.py")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true, graphql: `{"data":{"Get":{"SentinelSymbol":[
		{"symbolId":"b.py::g","filePath":"b.py","snippet":"def g(): pass","_additional":{"distance":0.12}},
		{"symbolId":"c.py::h","filePath":"c.py","snippet":"def h(): pass","_additional":{"distance":0.4}}
	]}}}`}
	s := openFake(t, fake)

	got, err := s.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 4)
	require.NoError(t, err)
	want := []index.Match{
		{ID: "b.py::g", FilePath: "b.py", Snippet: "def g(): pass", Distance: 0.12},
		{ID: "c.py::h", FilePath: "c.py", Snippet: "def h(): pass", Distance: 0.4},
	}
	assert.Equal(t, want, got)

	queries := fake.find(http.MethodPost, "/v1/graphql")
	require.Len(t, queries, 1)
	q := queries[0].body
	assert.Contains(t, q, "nearVector")
	assert.Contains(t, q, "_additional")
	assert.Contains(t, q, "distance")
	assert.Regexp(t, regexp.MustCompile(`limit:\s*4`), q)
}

func TestSearch_NoQueryForEmptyInput(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true}
	s := openFake(t, fake)

	got, err := s.Search(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = s.Search(context.Background(), []float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, fake.find(http.MethodPost, "/v1/graphql"))
}

func TestReplaceFile(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true}
	s := openFake(t, fake)
	syms := []index.Symbol{
		{ID: "src/a.py::f", Name: "f", Kind: index.KindFunction, FilePath: "src/a.py", StartLine: 1, EndLine: 5, Snippet: "def f(): pass"},
		{ID: "src/a.py::g", Name: "g", Kind: index.KindFunction, FilePath: "src/a.py", StartLine: 7, EndLine: 9, Snippet: "def g(): pass"},
	}

	err := s.ReplaceFile(context.Background(), "src/a.py", syms, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	deletes := fake.find(http.MethodDelete, "/v1/batch/objects")
	require.Len(t, deletes, 1, "old symbols are deleted first")
	assert.Contains(t, deletes[0].body, "src/a.py")

	inserts := fake.find(http.MethodPost, "/v1/batch/objects")
	require.Len(t, inserts, 1)
	body := inserts[0].body
	assert.Contains(t, body, string(ObjectID("src/a.py::f")))
	assert.Contains(t, body, string(ObjectID("src/a.py::g")))
	assert.True(t, strings.Contains(body, `"vector":[1,0]`) || strings.Contains(body, `"vector":[1.0,0.0]`), body)
}

func TestReplaceFile_RejectedObjects(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true, batchFail: true}
	s := openFake(t, fake)
	syms := []index.Symbol{{ID: "a.py::f", Name: "f", Kind: index.KindFunction, FilePath: "a.py", StartLine: 1, EndLine: 2}}

	err := s.ReplaceFile(context.Background(), "a.py", syms, [][]float32{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 objects rejected")
}

func TestReplaceFile_EmptyOnlyDeletes(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true}
	s := openFake(t, fake)

	require.NoError(t, s.ReplaceFile(context.Background(), "a.py", nil, nil))
	assert.Len(t, fake.find(http.MethodDelete, "/v1/batch/objects"), 1)
	assert.Empty(t, fake.find(http.MethodPost, "/v1/batch/objects"))
}

func TestDeleteFile(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true}
	s := openFake(t, fake)

	require.NoError(t, s.DeleteFile(context.Background(), "src/gone.py"))
	deletes := fake.find(http.MethodDelete, "/v1/batch/objects")
	require.Len(t, deletes, 1)
	assert.Contains(t, deletes[0].body, `"SentinelSymbol"`)
	assert.Contains(t, deletes[0].body, "src/gone.py")
}

func TestReset(t *testing.T) {
	fake := &fakeWeaviate{hasClass: true}
	s := openFake(t, fake)

	require.NoError(t, s.Reset(context.Background()))
	assert.Len(t, fake.find(http.MethodDelete, "/v1/schema/"+DefaultClassName), 1)
	assert.Len(t, fake.find(http.MethodPost, "/v1/schema"), 1, "class is recreated")
}
