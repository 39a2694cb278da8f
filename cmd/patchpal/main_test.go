package main

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

func TestClientMode(t *testing.T) {
	tests := []struct {
		name    string
		opts    clientOptions
		want    string
		wantErr string
	}{
		{name: "default local", want: "local:."},
		{name: "local path", opts: clientOptions{path: "/tmp/repo"}, want: "local:/tmp/repo"},
		{name: "pr number", opts: clientOptions{repo: "octo/hello", prNumber: 7}, want: "github:octo/hello#7"},
		{name: "branch", opts: clientOptions{repo: "octo/hello", branchName: "feature/x"}, want: "github:octo/hello#feature/x"},
		{name: "repo without id", opts: clientOptions{repo: "octo/hello"}, wantErr: "requires --pr-number"},
		{name: "id without repo", opts: clientOptions{prNumber: 3}, wantErr: "require --repo"},
		{name: "bad repo", opts: clientOptions{repo: "nope", prNumber: 1}, wantErr: "nope"},
		{name: "negative pr", opts: clientOptions{repo: "octo/hello", prNumber: -2}, wantErr: "invalid --pr-number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := tt.opts.mode()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mode.String() != tt.want {
				t.Errorf("mode = %q, want %q", mode.String(), tt.want)
			}
		})
	}
}

func TestClientModeKinds(t *testing.T) {
	mode, err := (&clientOptions{repo: "octo/hello", prNumber: 1}).mode()
	if err != nil {
		t.Fatal(err)
	}
	h, ok := mode.(diffsource.Hosted)
	if !ok {
		t.Fatalf("expected Hosted, got %T", mode)
	}
	if h.Owner != "octo" || h.Repo != "hello" || h.Identifier != "1" {
		t.Errorf("unexpected hosted mode %+v", h)
	}
}

func TestRootRejectsConflictingFlags(t *testing.T) {
	tests := [][]string{
		{"--path", ".", "--repo", "octo/hello"},
		{"--repo", "octo/hello", "--pr-number", "1", "--branch-name", "x"},
		{"client", "-C", ".", "-n", "4"},
		{"one", "two"},
		{"server", "extra"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			if err := cmd.ExecuteContext(context.Background()); err == nil {
				t.Fatal("expected flag validation error")
			}
		})
	}
}

func TestRunExitCodeOnUsageError(t *testing.T) {
	if code := run([]string{"--repo", "octo/hello"}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestVerbosityFlag(t *testing.T) {
	g := &globalOptions{verbose: 2}
	flags := g.cliFlags()
	if flags.LogLevel == nil || *flags.LogLevel != "debug" {
		t.Fatalf("expected debug level, got %v", flags.LogLevel)
	}
	if (&globalOptions{}).cliFlags().LogLevel != nil {
		t.Fatal("no -v must leave the configured level alone")
	}
}
