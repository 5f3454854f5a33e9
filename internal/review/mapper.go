package review

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/sentinel/internal/diffparse"
	"github.com/dshills/sentinel/internal/index"
)

// Mapper resolves which indexed symbols a set of hunks touches.
type Mapper struct {
	source index.SymbolSource
	log    hclog.Logger
	rec    Recorder
}

// NewMapper returns a Mapper reading symbols from source.
func NewMapper(source index.SymbolSource, log hclog.Logger, rec Recorder) *Mapper {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Mapper{source: source, log: log.Named("mapper"), rec: rec}
}

type lookup struct {
	symbols []index.Symbol
	err     error
}

// Map returns every symbol whose inclusive line range contains at least one
// changed line of a hunk in the same file. Each symbol appears once, in the
// order it was first hit. A file whose symbols cannot be read contributes
// nothing.
func (m *Mapper) Map(ctx context.Context, hunks []diffparse.Hunk) []index.Symbol {
	files := make(map[string]lookup)
	seen := make(map[string]bool)
	var out []index.Symbol

	for _, h := range hunks {
		l, ok := files[h.FilePath]
		if !ok {
			syms, err := m.source.GetSymbols(ctx, h.FilePath)
			l = lookup{symbols: syms, err: err}
			files[h.FilePath] = l
			if err != nil {
				m.rec.CollaboratorFailed("symbols")
				m.log.Warn("symbol lookup failed, skipping file", "path", h.FilePath, "error", err)
			}
		}
		if l.err != nil {
			continue
		}

		for _, s := range l.symbols {
			if seen[s.ID] || !touches(s, h.ChangedLines) {
				continue
			}
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	m.log.Debug("mapped hunks to symbols", "hunks", len(hunks), "symbols", len(out))
	return out
}

func touches(s index.Symbol, lines []int) bool {
	for _, l := range lines {
		if s.Contains(l) {
			return true
		}
	}
	return false
}
