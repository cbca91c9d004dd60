// Package collect gathers raw contributions before a synthesis run. It is
// the barrier in front of the engine: whatever has not arrived when a
// source returns is treated as a missing contributor.
package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// Source yields the contributions of one run.
type Source interface {
	Collect(ctx context.Context) ([]synthesis.Contribution, error)
}

// DirSource reads contributions from markdown files named
// <role>.md or <role>.<id>.md. The contributor ID defaults to the role.
// Files whose role is unknown are still read; the engine decides what to do
// with them.
type DirSource struct {
	Dir    string
	Logger *zap.Logger
}

// Collect reads every *.md file in Dir, sorted by file name.
func (s DirSource) Collect(ctx context.Context) ([]synthesis.Contribution, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if info, err := os.Stat(s.Dir); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("collect: %s is not a directory", s.Dir)
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("collect: glob %s: %w", s.Dir, err)
	}
	sort.Strings(matches)

	var out []synthesis.Contribution
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		role, id, ok := ParseFileName(filepath.Base(path))
		if !ok {
			logger.Debug("skipping file", zap.String("path", path))
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("collect: read %s: %w", path, err)
		}
		out = append(out, synthesis.Contribution{
			ContributorID: id,
			Role:          role,
			RawText:       string(data),
		})
	}
	logger.Info("collected contributions", zap.String("dir", s.Dir), zap.Int("count", len(out)))
	return out, nil
}

// ParseFileName splits "<role>[.<id>].md" into role and contributor ID.
// Names starting with a dot or underscore, and README.md, are rejected.
func ParseFileName(name string) (synthesis.Role, string, bool) {
	base, ok := strings.CutSuffix(name, ".md")
	if !ok || base == "" || strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		return "", "", false
	}
	if strings.EqualFold(base, "readme") {
		return "", "", false
	}
	role, id, found := strings.Cut(base, ".")
	if !found || id == "" {
		id = role
	}
	role = strings.ToLower(strings.ReplaceAll(role, "-", "_"))
	return synthesis.Role(role), id, true
}
