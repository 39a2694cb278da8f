package git

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolLimitsConcurrency(t *testing.T) {
	const limit = 2
	const workers = 8
	pool := NewPool(limit)

	var running, maxSeen atomic.Int32
	done := make(chan struct{}, workers)

	for range workers {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = pool.Run(context.Background(), func() error {
				cur := running.Add(1)
				for {
					old := maxSeen.Load()
					if cur <= old || maxSeen.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	for range workers {
		<-done
	}

	if m := maxSeen.Load(); m > limit {
		t.Errorf("max concurrent = %d, want <= %d", m, limit)
	}
}

func TestPoolCancelledWhileWaiting(t *testing.T) {
	pool := NewPool(1)

	occupied := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func() error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Run(ctx, func() error {
		t.Error("fn should not have been called")
		return nil
	})
	if err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestNilPoolRunsDirectly(t *testing.T) {
	var pool *Pool
	called := false
	if err := pool.Run(context.Background(), func() error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
}

// fakeCommand re-executes the test binary as a helper process that prints
// PATCHPAL_HELPER_STDOUT and exits with PATCHPAL_HELPER_EXIT.
func fakeCommand(stdout string, exit string) CommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--")
		cmd.Env = append(os.Environ(),
			"PATCHPAL_HELPER=1",
			"PATCHPAL_HELPER_STDOUT="+stdout,
			"PATCHPAL_HELPER_EXIT="+exit,
			"PATCHPAL_HELPER_ARGS="+name+" "+strings.Join(args, " "),
		)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("PATCHPAL_HELPER") != "1" {
		return
	}
	_, _ = os.Stdout.WriteString(os.Getenv("PATCHPAL_HELPER_STDOUT"))
	if os.Getenv("PATCHPAL_HELPER_EXIT") != "0" {
		_, _ = os.Stderr.WriteString("helper failed")
		os.Exit(1)
	}
	os.Exit(0)
}

func TestOutput(t *testing.T) {
	pool := NewPool(1).WithCommand(fakeCommand("diff text", "0"))

	out, err := pool.Output(context.Background(), t.TempDir(), "git", "diff")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if out != "diff text" {
		t.Errorf("expected stdout, got %q", out)
	}
}

func TestOutputFailureIncludesStderr(t *testing.T) {
	pool := NewPool(1).WithCommand(fakeCommand("", "1"))

	_, err := pool.Output(context.Background(), "", "git", "diff")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "helper failed") || !strings.Contains(err.Error(), "git diff") {
		t.Errorf("error should carry command and stderr, got %v", err)
	}
}
