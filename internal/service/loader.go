package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pdfchat/internal/domain"
)

// IsPDF reports whether path has a .pdf extension, ignoring case.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ExpandPaths resolves paths and globs into existing PDF files, keeping
// first-seen order and dropping duplicates.
func ExpandPaths(patterns []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		for _, m := range matches {
			if !IsPDF(m) {
				continue
			}
			key := filepath.Clean(m)
			if abs, err := filepath.Abs(m); err == nil {
				key = abs
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// LoadDocuments reads every PDF named by paths (globs allowed).
func LoadDocuments(paths []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range ExpandPaths(paths) {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, domain.Document{Name: filepath.Base(p), Data: data})
	}
	if len(docs) == 0 {
		return nil, domain.ErrNoDocuments
	}
	return docs, nil
}
