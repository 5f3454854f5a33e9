package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

var ignoredDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
	".sentinel":    true,
	"vendor":       true,
}

var ignoredFiles = map[string]bool{
	"__init__.py": true,
}

// ScannedFile is a source file whose hash differs from the recorded one.
type ScannedFile struct {
	Path string
	Hash string
}

// ScanResult lists what changed under a root since the last recorded state.
// Paths are slash separated and relative to the scanned root.
type ScanResult struct {
	Changed []ScannedFile
	Removed []string
}

// Scanner compares files on disk against a HashStore.
type Scanner struct {
	hashes HashStore
}

// NewScanner returns a Scanner reading recorded hashes from hashes.
func NewScanner(hashes HashStore) *Scanner {
	return &Scanner{hashes: hashes}
}

// Scan walks root and reports new or modified supported files, and recorded
// files that no longer exist. It does not modify the HashStore.
func (s *Scanner) Scan(ctx context.Context, root string) (ScanResult, error) {
	known, err := s.hashes.Hashes(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("loading file hashes: %w", err)
	}

	var res ScanResult
	seen := make(map[string]bool)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoredFiles[d.Name()] || !Supported(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		sum, err := HashFile(path)
		if err != nil {
			return err
		}
		if known[rel] != sum {
			res.Changed = append(res.Changed, ScannedFile{Path: rel, Hash: sum})
		}
		return nil
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("scanning %s: %w", root, err)
	}

	for p := range known {
		if !seen[p] {
			res.Removed = append(res.Removed, p)
		}
	}
	sort.Strings(res.Removed)
	return res, nil
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
