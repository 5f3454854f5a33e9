package review

import (
	"strings"
	"testing"

	"github.com/dshills/sentinel/internal/index"
)

func TestBuildUserPrompt(t *testing.T) {
	diff := "diff --git a/main.go b/main.go\n@@ -1,3 +1,4 @@\n+import \"fmt\"\n"
	sym := symbolAt("main.go", "main", 1, 9)
	ctx := []index.Match{{ID: "util.go::x", FilePath: "util.go", Snippet: "func x() {}"}}

	prompt := BuildUserPrompt(diff, sym, ctx, []int{2, 3, 10})

	checks := []string{
		"Language: Go",
		"--- Snippet from util.go ---\nfunc x() {}",
		"AFFECTED SYMBOL (main.go, lines 1-9)",
		sym.Snippet,
		diff,
		"VALID LINE NUMBERS",
		"2, 3, 10",
	}
	for _, c := range checks {
		if !strings.Contains(prompt, c) {
			t.Errorf("prompt missing %q", c)
		}
	}
}

func TestBuildUserPrompt_NoContext(t *testing.T) {
	prompt := BuildUserPrompt("d", index.Symbol{FilePath: "x.rb"}, nil, nil)
	if !strings.Contains(prompt, "No relevant context found.") {
		t.Error("prompt should say when no context is available")
	}
	if !strings.Contains(prompt, "Code not found.") {
		t.Error("prompt should say when the symbol has no source")
	}
	if strings.Contains(prompt, "Language:") {
		t.Error("unknown extensions should not produce a language hint")
	}
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt()
	for _, c := range []string{`"reviews"`, "HIGH", "ABSOLUTE", `{"reviews": []}`} {
		if !strings.Contains(p, c) {
			t.Errorf("system prompt missing %q", c)
		}
	}
}
