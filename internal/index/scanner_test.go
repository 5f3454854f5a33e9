package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func changedPaths(res ScanResult) []string {
	var out []string
	for _, f := range res.Changed {
		out = append(out, f.Path)
	}
	return out
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.py", "def main(): pass\n")
	writeFile(t, root, "app/__init__.py", "")
	writeFile(t, root, "app/Util.java", "class Util {}\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "node_modules/dep/index.py", "x = 1\n")
	writeFile(t, root, ".venv/lib/site.py", "x = 1\n")
	unchanged := writeFile(t, root, "cmd/tool.go", "package main\n")

	sum, err := HashFile(unchanged)
	require.NoError(t, err)
	hashes := newMemHashes(map[string]string{
		"cmd/tool.go": sum,
		"gone.py":     "deadbeef",
	})

	res, err := NewScanner(hashes).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"app/main.py", "app/Util.java"}, changedPaths(res))
	assert.Equal(t, []string{"gone.py"}, res.Removed)

	// scanning never writes state
	state, _ := hashes.Hashes(context.Background())
	assert.Len(t, state, 2)
}

func TestScanner_ModifiedFile(t *testing.T) {
	root := t.TempDir()
	p := writeFile(t, root, "a.py", "x = 1\n")
	sum, err := HashFile(p)
	require.NoError(t, err)
	hashes := newMemHashes(map[string]string{"a.py": sum})

	writeFile(t, root, "a.py", "x = 2\n")
	res, err := NewScanner(hashes).Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, res.Changed, 1)
	assert.NotEqual(t, sum, res.Changed[0].Hash)
	assert.Empty(t, res.Removed)
}

func TestHashFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "f.py", "abc")
	sum, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}
