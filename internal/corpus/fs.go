package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"conclave/internal/ports"
)

// codeExtensions marks file extensions treated as code rather than prose.
var codeExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".rs": {}, ".java": {},
	".c": {}, ".h": {}, ".cpp": {}, ".sh": {}, ".sql": {}, ".yaml": {},
	".yml": {}, ".json": {}, ".toml": {},
}

// FSCorpus reads knowledge items from a directory tree. Each regular file
// becomes one item; the most recently modified maxCandidates files win.
type FSCorpus struct {
	root          string
	maxCandidates int
}

// NewFSCorpus creates a corpus rooted at dir.
func NewFSCorpus(dir string, maxCandidates int) (*FSCorpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", dir)
	}
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}
	return &FSCorpus{root: dir, maxCandidates: maxCandidates}, nil
}

// Candidates walks the tree under root/scope (or root when scope is empty)
// and returns the most recently modified files as knowledge items.
func (c *FSCorpus) Candidates(ctx context.Context, scope string) ([]ports.KnowledgeItem, error) {
	base := c.root
	if scope != "" {
		base = filepath.Join(c.root, filepath.Clean("/"+scope))
	}

	type candidate struct {
		path string
		info os.FileInfo
	}
	var files []candidate

	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != base {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		files = append(files, candidate{path: path, info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].info.ModTime().After(files[j].info.ModTime())
	})
	if len(files) > c.maxCandidates {
		files = files[:c.maxCandidates]
	}

	items := make([]ports.KnowledgeItem, 0, len(files))
	for _, f := range files {
		body, err := os.ReadFile(f.path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(c.root, f.path)
		if err != nil {
			rel = f.path
		}
		kind := ports.KnowledgeItemDocument
		if _, ok := codeExtensions[strings.ToLower(filepath.Ext(f.path))]; ok {
			kind = ports.KnowledgeItemCode
		}
		items = append(items, ports.KnowledgeItem{
			ID:           rel,
			Title:        strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path)),
			Path:         rel,
			Body:         string(body),
			Kind:         kind,
			LastAccessed: f.info.ModTime(),
		})
	}
	return items, nil
}
