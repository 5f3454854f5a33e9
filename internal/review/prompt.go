package review

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dshills/sentinel/internal/index"
)

const systemPrompt = `You are Sentinel, a strict principal engineer auditing a pull request.
Find bugs, security vulnerabilities and performance problems. Do not comment on formatting or style.

You are given:
1. THE DIFF: the raw change.
2. THE SYMBOL: the full function or class the change lands in.
3. RELEVANT CONTEXT: similar code from the same repository showing established patterns.

Rules:
1. Cross-check the change against the context and flag code that contradicts established patterns.
2. Look for injection, hard-coded secrets, quadratic loops, needless I/O, off-by-one errors and missing null checks.
3. Use ABSOLUTE line numbers from the new version of the file, never positions inside the diff.
4. Only comment on lines listed under VALID LINE NUMBERS.
5. Rate severity as "HIGH", "MEDIUM" or "LOW".

You MUST respond with a single JSON object. No markdown, no explanation outside the JSON.

The object must have this exact structure:
{
  "reviews": [
    {
      "line": 1,
      "issue": "Concise description of the problem",
      "severity": "HIGH|MEDIUM|LOW",
      "suggestion": "Code fix or specific advice"
    }
  ]
}

If there are no issues, respond with {"reviews": []}`

// SystemPrompt returns the system prompt for the model.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt assembles the per-symbol prompt.
func BuildUserPrompt(diff string, sym index.Symbol, context []index.Match, validLines []int) string {
	var b strings.Builder

	if lang := languageOf(sym.FilePath); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n\n", lang)
	}

	b.WriteString("### CONTEXT (similar patterns in the codebase)\n")
	if len(context) == 0 {
		b.WriteString("No relevant context found.\n")
	}
	for _, c := range context {
		fmt.Fprintf(&b, "--- Snippet from %s ---\n%s\n", c.FilePath, c.Snippet)
	}

	fmt.Fprintf(&b, "\n### AFFECTED SYMBOL (%s, lines %d-%d)\n", sym.FilePath, sym.StartLine, sym.EndLine)
	if sym.Snippet == "" {
		b.WriteString("Code not found.\n")
	} else {
		b.WriteString(sym.Snippet)
		b.WriteString("\n")
	}

	b.WriteString("\n### GIT DIFF (the change)\n")
	b.WriteString(diff)
	b.WriteString("\n")

	b.WriteString("\n### VALID LINE NUMBERS (only comment on these lines)\n")
	nums := make([]string, len(validLines))
	for i, l := range validLines {
		nums[i] = strconv.Itoa(l)
	}
	b.WriteString(strings.Join(nums, ", "))
	b.WriteString("\n\nDoes the diff introduce bugs or violate patterns found in the context?\n")

	return b.String()
}

var langMap = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".java": "Java",
}

func languageOf(path string) string {
	return langMap[strings.ToLower(filepath.Ext(path))]
}
