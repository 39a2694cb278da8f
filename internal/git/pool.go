// Package git runs git and related CLI tools with bounded concurrency.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"
)

// CommandFunc builds the command to run. Tests swap it for a fake.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Pool limits concurrent CLI invocations using a weighted semaphore.
// A nil *Pool runs commands without a limit.
type Pool struct {
	sem     *semaphore.Weighted
	command CommandFunc
}

// NewPool creates a Pool that allows at most limit concurrent commands.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit)), command: exec.CommandContext}
}

// WithCommand returns a copy of p that builds commands with fn.
func (p *Pool) WithCommand(fn CommandFunc) *Pool {
	cp := &Pool{command: fn}
	if p != nil {
		cp.sem = p.sem
	}
	return cp
}

// Run acquires a slot, runs fn, and releases the slot.
// Returns ctx.Err() if the context is cancelled while waiting for a slot.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Output runs name with args in dir under the pool limit and returns stdout.
// A failing command's error carries its trimmed stderr.
func (p *Pool) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	command := exec.CommandContext
	if p != nil && p.command != nil {
		command = p.command
	}

	var out string
	err := p.Run(ctx, func() error {
		cmd := command(ctx, name, args...)
		if dir != "" {
			cmd.Dir = dir
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s %s: %s: %w", name, strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
		}
		out = stdout.String()
		return nil
	})
	return out, err
}
