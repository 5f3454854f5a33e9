package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/python"
)

type grammar struct {
	lang Language
	ts   func() *sitter.Language
}

var grammars = map[string]grammar{
	".py":   {Python, python.GetLanguage},
	".java": {Java, java.GetLanguage},
	".go":   {Go, golang.GetLanguage},
}

// Supported reports whether path has an extension the indexer can parse.
func Supported(path string) bool {
	_, ok := grammars[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ParseFile parses src with the grammar matching path's extension and
// extracts its symbols.
func ParseFile(ctx context.Context, path string, src []byte) ([]Symbol, error) {
	g, ok := grammars[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(g.ts())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	return Extract(tsNode{tree.RootNode()}, src, path, g.lang), nil
}

// tsNode adapts a tree-sitter node to Node.
type tsNode struct {
	n *sitter.Node
}

func (t tsNode) Kind() string { return t.n.Type() }

func (t tsNode) ChildByField(name string) (Node, bool) {
	c := t.n.ChildByFieldName(name)
	if c == nil {
		return nil, false
	}
	return tsNode{c}, true
}

func (t tsNode) ByteRange() (uint32, uint32) { return t.n.StartByte(), t.n.EndByte() }

func (t tsNode) Children() []Node {
	count := int(t.n.ChildCount())
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := t.n.Child(i); c != nil {
			out = append(out, tsNode{c})
		}
	}
	return out
}
