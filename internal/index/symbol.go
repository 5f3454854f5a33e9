package index

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SymbolKind classifies a Symbol.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindClass    SymbolKind = "class"
)

// Symbol is a named code region in one file. Lines are 1-based and
// inclusive.
type Symbol struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Kind      SymbolKind `json:"kind" validate:"oneof=function class"`
	StartLine int        `json:"start_line" validate:"gte=1"`
	EndLine   int        `json:"end_line" validate:"gtefield=StartLine"`
	FilePath  string     `json:"file_path" validate:"required"`
	Snippet   string     `json:"snippet"`
}

// Match is one similarity search result, closest first.
type Match struct {
	ID       string  `json:"id"`
	FilePath string  `json:"file_path"`
	Snippet  string  `json:"snippet"`
	Distance float32 `json:"distance"`
}

var symbolValidate = validator.New()

// SymbolID returns the canonical identifier for a symbol named name in path.
func SymbolID(path, name string) string {
	return path + "::" + name
}

// NewSymbol returns a validated Symbol with the canonical ID.
func NewSymbol(path, name string, kind SymbolKind, start, end int, snippet string) (Symbol, error) {
	s := Symbol{
		ID:        SymbolID(path, name),
		Name:      name,
		Kind:      kind,
		StartLine: start,
		EndLine:   end,
		FilePath:  path,
		Snippet:   snippet,
	}
	if err := s.Validate(); err != nil {
		return Symbol{}, err
	}
	return s, nil
}

// Validate checks the structural invariants of s.
func (s Symbol) Validate() error {
	if err := symbolValidate.Struct(s); err != nil {
		return fmt.Errorf("invalid symbol %q: %w", s.ID, err)
	}
	return nil
}

// Contains reports whether line falls inside the symbol's inclusive range.
func (s Symbol) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}
