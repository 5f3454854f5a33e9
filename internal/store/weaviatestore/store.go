package weaviatestore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/dshills/sentinel/internal/index"
)

// DefaultClassName is used when Options.ClassName is empty.
const DefaultClassName = "SentinelSymbol"

// maxSymbolsPerFile bounds the GetSymbols query.
const maxSymbolsPerFile = 10000

// idNamespace seeds deterministic object IDs derived from symbol IDs.
var idNamespace = uuid.MustParse("6f1c4a52-7d0e-4b9a-9a51-2f3d8c7e1b40")

// Options configures Open.
type Options struct {
	URL       string
	ClassName string
	Logger    hclog.Logger
}

// Store implements index.Store on a Weaviate class.
type Store struct {
	client *weaviate.Client
	class  string
	log    hclog.Logger
}

var _ index.Store = (*Store)(nil)

// Open connects to Weaviate and creates the class if it is missing.
func Open(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := clientConfig(opts.URL)
	if err != nil {
		return nil, err
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	s := &Store{client: client, class: className(opts.ClassName), log: log.Named("weaviate")}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func className(name string) string {
	if name == "" {
		return DefaultClassName
	}
	return name
}

func clientConfig(raw string) (weaviate.Config, error) {
	if raw == "" {
		return weaviate.Config{}, fmt.Errorf("weaviate url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return weaviate.Config{}, fmt.Errorf("parsing weaviate url: %w", err)
	}
	if u.Host == "" {
		return weaviate.Config{}, fmt.Errorf("weaviate url %q has no host", raw)
	}
	return weaviate.Config{Host: u.Host, Scheme: u.Scheme}, nil
}

// Schema returns the class definition for symbols.
func Schema(class string) *models.Class {
	filterable := new(bool)
	*filterable = true
	return &models.Class{
		Class:       className(class),
		Description: "Indexed functions and classes",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "symbolId", DataType: []string{"text"}, IndexFilterable: filterable, Tokenization: "field"},
			{Name: "name", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "kind", DataType: []string{"text"}, IndexFilterable: filterable, Tokenization: "field"},
			{Name: "filePath", DataType: []string{"text"}, IndexFilterable: filterable, Tokenization: "field"},
			{Name: "startLine", DataType: []string{"int"}},
			{Name: "endLine", DataType: []string{"int"}},
			{Name: "snippet", DataType: []string{"text"}, Tokenization: "word"},
		},
	}
}

// EnsureSchema creates the class if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx); err == nil {
		return nil
	}
	s.log.Info("creating class", "class", s.class)
	if err := s.client.Schema().ClassCreator().WithClass(Schema(s.class)).Do(ctx); err != nil {
		return fmt.Errorf("creating class %s: %w", s.class, err)
	}
	return nil
}

// Reset deletes the class with every stored symbol and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.client.Schema().ClassDeleter().WithClassName(s.class).Do(ctx); err != nil {
		return fmt.Errorf("deleting class %s: %w", s.class, err)
	}
	return s.EnsureSchema(ctx)
}

var symbolFields = []graphql.Field{
	{Name: "symbolId"},
	{Name: "name"},
	{Name: "kind"},
	{Name: "filePath"},
	{Name: "startLine"},
	{Name: "endLine"},
	{Name: "snippet"},
}

func fileFilter(path string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"filePath"}).
		WithOperator(filters.Equal).
		WithValueText(path)
}

// GetSymbols returns the symbols stored for path.
func (s *Store) GetSymbols(ctx context.Context, path string) ([]index.Symbol, error) {
	resp, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(symbolFields...).
		WithWhere(fileFilter(path)).
		WithLimit(maxSymbolsPerFile).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying symbols of %s: %w", path, err)
	}
	objs, err := parseObjects(resp, s.class)
	if err != nil {
		return nil, err
	}
	out := make([]index.Symbol, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.symbol())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out, nil
}

// Search returns the limit nearest symbols to vector.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]index.Match, error) {
	if limit <= 0 || len(vector) == 0 {
		return []index.Match{}, nil
	}
	fields := append(append([]graphql.Field{}, symbolFields...),
		graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}})

	resp, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	objs, err := parseObjects(resp, s.class)
	if err != nil {
		return nil, err
	}
	out := make([]index.Match, 0, len(objs))
	for _, o := range objs {
		out = append(out, index.Match{
			ID:       o.SymbolID,
			FilePath: o.FilePath,
			Snippet:  o.Snippet,
			Distance: o.Additional.Distance,
		})
	}
	return out, nil
}

// ReplaceFile deletes the symbols of path and inserts symbols with vectors.
func (s *Store) ReplaceFile(ctx context.Context, path string, symbols []index.Symbol, vectors [][]float32) error {
	if len(vectors) != len(symbols) {
		return fmt.Errorf("replacing %s: %d symbols but %d vectors", path, len(symbols), len(vectors))
	}
	if err := s.DeleteFile(ctx, path); err != nil {
		return err
	}
	if len(symbols) == 0 {
		return nil
	}

	results, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objectsFor(s.class, symbols, vectors)...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("storing symbols of %s: %w", path, err)
	}
	failed := 0
	for _, r := range results {
		if r.Result != nil && r.Result.Errors != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("storing symbols of %s: %d of %d objects rejected", path, failed, len(symbols))
	}
	return nil
}

// DeleteFile removes every symbol of path.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithWhere(fileFilter(path)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("deleting symbols of %s: %w", path, err)
	}
	return nil
}

// ObjectID returns the deterministic Weaviate ID of a symbol.
func ObjectID(symbolID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(idNamespace, []byte(symbolID)).String())
}

func objectsFor(class string, symbols []index.Symbol, vectors [][]float32) []*models.Object {
	objs := make([]*models.Object, len(symbols))
	for i, sym := range symbols {
		objs[i] = &models.Object{
			Class: class,
			ID:    ObjectID(sym.ID),
			Properties: map[string]interface{}{
				"symbolId":  sym.ID,
				"name":      sym.Name,
				"kind":      string(sym.Kind),
				"filePath":  sym.FilePath,
				"startLine": sym.StartLine,
				"endLine":   sym.EndLine,
				"snippet":   sym.Snippet,
			},
			Vector: models.C11yVector(vectors[i]),
		}
	}
	return objs
}

type symbolObject struct {
	SymbolID   string `json:"symbolId"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	FilePath   string `json:"filePath"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Snippet    string `json:"snippet"`
	Additional struct {
		Distance float32 `json:"distance"`
	} `json:"_additional"`
}

func (o symbolObject) symbol() index.Symbol {
	return index.Symbol{
		ID:        o.SymbolID,
		Name:      o.Name,
		Kind:      index.SymbolKind(o.Kind),
		StartLine: o.StartLine,
		EndLine:   o.EndLine,
		FilePath:  o.FilePath,
		Snippet:   o.Snippet,
	}
}

// parseObjects decodes the Get.<class> array of a GraphQL response.
func parseObjects(resp *models.GraphQLResponse, class string) ([]symbolObject, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil graphql response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}
	get, ok := resp.Data["Get"]
	if !ok {
		return []symbolObject{}, nil
	}
	raw, err := json.Marshal(get)
	if err != nil {
		return nil, fmt.Errorf("re-encoding graphql data: %w", err)
	}
	var byClass map[string][]symbolObject
	if err := json.Unmarshal(raw, &byClass); err != nil {
		return nil, fmt.Errorf("decoding graphql data: %w", err)
	}
	objs := byClass[class]
	if objs == nil {
		objs = []symbolObject{}
	}
	return objs, nil
}
