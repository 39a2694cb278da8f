// Package diffsource defines where a submitter obtains its unified diff.
package diffsource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoChanges is returned when a source produces an empty diff.
var ErrNoChanges = errors.New("no changes to submit")

// Mode selects a diff source. It is either Local or Hosted.
type Mode interface {
	// Kind is the registry name of the source that serves this mode.
	Kind() string
	String() string
}

// Local reads the uncommitted changes of a git working tree.
type Local struct {
	Path string
}

func (Local) Kind() string { return "local" }

func (l Local) String() string {
	if l.Path == "" {
		return "local:."
	}
	return "local:" + l.Path
}

// Hosted reads the diff of a pull request on a hosting service.
// Identifier is a pull request number or a branch name.
type Hosted struct {
	Owner      string
	Repo       string
	Identifier string
}

func (Hosted) Kind() string { return "github" }

func (h Hosted) String() string {
	return fmt.Sprintf("github:%s#%s", h.Slug(), h.Identifier)
}

// Slug returns "owner/repo".
func (h Hosted) Slug() string { return h.Owner + "/" + h.Repo }

// ParseRepo splits an "owner/repo" reference. Exactly one slash is allowed
// and neither side may be empty.
func ParseRepo(ref string) (owner, repo string, err error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo %q: expected owner/repo", ref)
	}
	return parts[0], parts[1], nil
}

// Diff is the unified diff text produced by a source.
type Diff struct {
	Text   string
	Source string
}

// Preview returns the first n lines of the diff and how many lines were left out.
func (d Diff) Preview(n int) (string, int) {
	lines := strings.Split(strings.TrimRight(d.Text, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n"), 0
	}
	return strings.Join(lines[:n], "\n"), len(lines) - n
}

// Source produces a diff for the mode it was created for.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Diff, error)
}

// Open resolves mode to a registered source and fetches its diff.
// An empty or whitespace-only result yields ErrNoChanges.
func Open(ctx context.Context, mode Mode, deps Deps) (Diff, error) {
	if mode == nil {
		mode = Local{}
	}
	src, err := New(mode, deps)
	if err != nil {
		return Diff{}, err
	}
	d, err := src.Fetch(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("fetch diff from %s: %w", mode, err)
	}
	if strings.TrimSpace(d.Text) == "" {
		return Diff{}, fmt.Errorf("%s: %w", mode, ErrNoChanges)
	}
	if d.Source == "" {
		d.Source = mode.String()
	}
	return d, nil
}
