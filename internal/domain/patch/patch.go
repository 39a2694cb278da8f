// Package patch models a parsed unified diff as files, hunks and tagged lines.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/Strob0t/patchpal/internal/domain"
)

// ErrEmpty is returned when a diff contains no file changes.
var ErrEmpty = errors.New("patch: no file changes")

// LineKind tags a line within a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

func (k LineKind) String() string {
	switch k {
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "context"
	}
}

// Line is one line of a hunk without its leading marker.
type Line struct {
	Kind LineKind
	Text string
}

// Hunk is a contiguous block of changes for one file.
type Hunk struct {
	OldStart int32
	OldLines int32
	NewStart int32
	NewLines int32
	Section  string
	Lines    []Line
}

// File holds the hunks touching one path pair.
type File struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// Set is an ordered collection of file changes. It is immutable after Parse.
type Set struct {
	Files []File
}

// Parse parses unified diff text. Parse failures and diffs without any file
// are reported as domain.ErrMalformedMessage.
func Parse(text string) (*Set, error) {
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %v: %w", err, domain.ErrMalformedMessage)
	}
	if len(fileDiffs) == 0 {
		return nil, fmt.Errorf("parse patch: %w: %w", ErrEmpty, domain.ErrMalformedMessage)
	}

	set := &Set{Files: make([]File, 0, len(fileDiffs))}
	for _, fd := range fileDiffs {
		f := File{
			OldPath: trimPrefix(fd.OrigName, "a/"),
			NewPath: trimPrefix(fd.NewName, "b/"),
			Hunks:   make([]Hunk, 0, len(fd.Hunks)),
		}
		for _, h := range fd.Hunks {
			f.Hunks = append(f.Hunks, Hunk{
				OldStart: h.OrigStartLine,
				OldLines: h.OrigLines,
				NewStart: h.NewStartLine,
				NewLines: h.NewLines,
				Section:  h.Section,
				Lines:    parseBody(h.Body),
			})
		}
		set.Files = append(set.Files, f)
	}
	return set, nil
}

// parseBody splits a hunk body into tagged lines. No-newline markers are dropped.
func parseBody(body []byte) []Line {
	body = bytes.TrimSuffix(body, []byte("\n"))
	if len(body) == 0 {
		return nil
	}
	raw := strings.Split(string(body), "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		if l == "" {
			lines = append(lines, Line{Kind: LineContext})
			continue
		}
		switch l[0] {
		case '+':
			lines = append(lines, Line{Kind: LineAdded, Text: l[1:]})
		case '-':
			lines = append(lines, Line{Kind: LineRemoved, Text: l[1:]})
		case ' ':
			lines = append(lines, Line{Kind: LineContext, Text: l[1:]})
		case '\\':
			// "\ No newline at end of file"
		default:
			lines = append(lines, Line{Kind: LineContext, Text: l})
		}
	}
	return lines
}

func trimPrefix(name, prefix string) string {
	if name == "/dev/null" {
		return name
	}
	return strings.TrimPrefix(name, prefix)
}

// Stats returns the number of added and removed lines across all files.
func (s *Set) Stats() (added, removed int) {
	if s == nil {
		return 0, 0
	}
	for i := range s.Files {
		a, r := s.Files[i].Stats()
		added += a
		removed += r
	}
	return added, removed
}

// Stats returns the number of added and removed lines in f.
func (f *File) Stats() (added, removed int) {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// LineCount returns the number of hunk lines across all files.
func (s *Set) LineCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, f := range s.Files {
		for _, h := range f.Hunks {
			n += len(h.Lines)
		}
	}
	return n
}

// Paths returns the display path of every file, preferring the new path.
func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		if f.NewPath != "" && f.NewPath != "/dev/null" {
			paths = append(paths, f.NewPath)
			continue
		}
		paths = append(paths, f.OldPath)
	}
	return paths
}
