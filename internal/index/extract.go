package index

import (
	"fmt"
	"sort"
	"strings"
)

// Node is the minimal syntax tree view the extractor needs.
type Node interface {
	Kind() string
	ChildByField(name string) (Node, bool)
	ByteRange() (start, end uint32)
	Children() []Node
}

// Language maps node kinds of one grammar to symbol kinds.
type Language struct {
	Name    string
	Targets map[string]SymbolKind
}

// Languages supported by the indexer.
var (
	Python = Language{
		Name: "python",
		Targets: map[string]SymbolKind{
			"function_definition": KindFunction,
			"class_definition":    KindClass,
		},
	}
	Java = Language{
		Name: "java",
		Targets: map[string]SymbolKind{
			"method_declaration": KindFunction,
			"class_declaration":  KindClass,
		},
	}
	Go = Language{
		Name: "go",
		Targets: map[string]SymbolKind{
			"function_declaration": KindFunction,
			"method_declaration":   KindFunction,
			"type_spec":            KindClass,
		},
	}
)

const anonymous = "anonymous"

// Extract returns every target symbol under root in document order,
// including nested ones. Symbols that share a name in one file get an
// "@<start line>" suffix on their ID after the first.
func Extract(root Node, src []byte, path string, lang Language) []Symbol {
	x := extractor{src: src, path: path, lang: lang, lines: newLineIndex(src)}
	syms := x.visit(root)

	seen := make(map[string]bool, len(syms))
	for i := range syms {
		if seen[syms[i].ID] {
			syms[i].ID = fmt.Sprintf("%s@%d", syms[i].ID, syms[i].StartLine)
		}
		seen[syms[i].ID] = true
	}
	return syms
}

type extractor struct {
	src   []byte
	path  string
	lang  Language
	lines lineIndex
}

func (x extractor) visit(n Node) []Symbol {
	var out []Symbol
	if kind, ok := x.lang.Targets[n.Kind()]; ok {
		if s, ok := x.symbol(n, kind); ok {
			out = append(out, s)
		}
	}
	for _, c := range n.Children() {
		out = append(out, x.visit(c)...)
	}
	return out
}

func (x extractor) symbol(n Node, kind SymbolKind) (Symbol, bool) {
	start, end := x.clamp(n.ByteRange())
	name := anonymous
	if nn, ok := n.ChildByField("name"); ok {
		ns, ne := x.clamp(nn.ByteRange())
		if text := strings.TrimSpace(string(x.src[ns:ne])); text != "" {
			name = text
		}
	}
	last := end
	if end > start {
		last = end - 1
	}
	s, err := NewSymbol(x.path, name, kind, x.lines.line(start), x.lines.line(last), string(x.src[start:end]))
	if err != nil {
		return Symbol{}, false
	}
	return s, true
}

func (x extractor) clamp(start, end uint32) (int, int) {
	s, e := int(start), int(end)
	if e > len(x.src) {
		e = len(x.src)
	}
	if s > e {
		s = e
	}
	return s, e
}

// lineIndex holds the byte offsets of every newline in a source file.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	var nl lineIndex
	for i, b := range src {
		if b == '\n' {
			nl = append(nl, i)
		}
	}
	return nl
}

// line returns the 1-based line containing byte offset p.
func (l lineIndex) line(p int) int {
	return 1 + sort.SearchInts(l, p)
}
