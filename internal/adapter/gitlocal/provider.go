// Package gitlocal implements a diffsource.Source that reads uncommitted
// changes from a local git working tree.
package gitlocal

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Strob0t/patchpal/internal/git"
	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

const providerName = "local"

// Provider diffs the index against the working tree via the git CLI.
type Provider struct {
	pool *git.Pool
	path string
}

// NewProvider creates a Provider for the repository containing path.
// Concurrent git invocations are limited via pool.
func NewProvider(pool *git.Pool, path string) *Provider {
	if path == "" {
		path = "."
	}
	return &Provider{pool: pool, path: path}
}

// Name returns "local".
func (p *Provider) Name() string { return providerName }

// Fetch returns the unstaged changes of the working tree as a unified diff.
func (p *Provider) Fetch(ctx context.Context) (diffsource.Diff, error) {
	absPath, err := filepath.Abs(p.path)
	if err != nil {
		return diffsource.Diff{}, fmt.Errorf("gitlocal: resolve path: %w", err)
	}

	top, err := p.pool.Output(ctx, absPath, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return diffsource.Diff{}, fmt.Errorf("gitlocal: open repository: %w", err)
	}

	text, err := p.pool.Output(ctx, absPath, "git", "diff", "--no-color", "--no-ext-diff")
	if err != nil {
		return diffsource.Diff{}, fmt.Errorf("gitlocal: diff: %w", err)
	}

	return diffsource.Diff{
		Text:   text,
		Source: "local:" + strings.TrimSpace(top),
	}, nil
}
