package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type symbolLines struct {
	ID    string
	Kind  SymbolKind
	Start int
	End   int
}

func linesOf(syms []Symbol) []symbolLines {
	out := make([]symbolLines, len(syms))
	for i, s := range syms {
		out[i] = symbolLines{s.ID, s.Kind, s.StartLine, s.EndLine}
	}
	return out
}

func TestParseFile_Python(t *testing.T) {
	src := `class Cart:
    def add(self, item):
        self.items.append(item)

def total(items):
    return sum(items)
`
	syms, err := ParseFile(context.Background(), "shop/cart.py", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []symbolLines{
		{"shop/cart.py::Cart", KindClass, 1, 3},
		{"shop/cart.py::add", KindFunction, 2, 3},
		{"shop/cart.py::total", KindFunction, 5, 6},
	}, linesOf(syms))
}

func TestParseFile_Go(t *testing.T) {
	src := `package shop

type Cart struct {
	items []int
}

func (c *Cart) Add(i int) {
	c.items = append(c.items, i)
}

func Total(c *Cart) int {
	return len(c.items)
}
`
	syms, err := ParseFile(context.Background(), "shop/cart.go", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []symbolLines{
		{"shop/cart.go::Cart", KindClass, 3, 5},
		{"shop/cart.go::Add", KindFunction, 7, 9},
		{"shop/cart.go::Total", KindFunction, 11, 13},
	}, linesOf(syms))
}

func TestParseFile_Java(t *testing.T) {
	src := `public class Greeter {
    public String greet(String name) {
        return "hi " + name;
    }
}
`
	syms, err := ParseFile(context.Background(), "Greeter.java", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []symbolLines{
		{"Greeter.java::Greeter", KindClass, 1, 5},
		{"Greeter.java::greet", KindFunction, 2, 4},
	}, linesOf(syms))
}

func TestParseFile_Unsupported(t *testing.T) {
	_, err := ParseFile(context.Background(), "notes.txt", []byte("hello"))
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a/b.py"))
	assert.True(t, Supported("Main.JAVA"))
	assert.True(t, Supported("x.go"))
	assert.False(t, Supported("x.rs"))
	assert.False(t, Supported("Makefile"))
}
