package internal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const DefaultIgnoreFilename = ".gsyncignore"

// IgnoreMatcher applies gitignore-style patterns from a file at the
// repository root to repository-relative paths.
type IgnoreMatcher struct {
	patterns []gitignore.Pattern
	source   string
}

// NewIgnoreMatcher reads name under root. A missing file yields a matcher
// that ignores nothing.
func NewIgnoreMatcher(root, name string) (*IgnoreMatcher, error) {
	if name == "" {
		name = DefaultIgnoreFilename
	}
	source := name
	if !filepath.IsAbs(source) {
		source = filepath.Join(root, name)
	}

	patterns, err := parseIgnoreFile(source)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}

	return &IgnoreMatcher{patterns: patterns, source: source}, nil
}

func (m *IgnoreMatcher) Len() int {
	return len(m.patterns)
}

func (m *IgnoreMatcher) Source() string {
	return m.source
}

// Match reports whether the slash-separated relative path is excluded.
// The last matching pattern decides, so "!" negations work as in git.
func (m *IgnoreMatcher) Match(rel string) bool {
	if len(m.patterns) == 0 {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return gitignore.NewMatcher(m.patterns).Match(parts, false)
}

func parseIgnoreFile(path string) ([]gitignore.Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}
