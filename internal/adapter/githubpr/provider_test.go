package githubpr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

const sampleDiff = `diff --git a/a.txt b/a.txt
--- a/a.txt
+++ b/a.txt
@@ -1 +1 @@
-old
+new
`

// fakeGitHub serves the two pull request endpoints the provider uses.
type fakeGitHub struct {
	mu      sync.Mutex
	auth    []string
	accept  []string
	heads   []string
	pulls   map[string]int // head "owner:branch" -> number
	diffs   map[int]string
	limited bool
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.accept = append(f.accept, r.Header.Get("Accept"))
	f.mu.Unlock()

	if f.limited {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "4102444800")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
		return
	}

	const prefix = "/api/v3/repos/octo/hello/pulls"
	switch {
	case r.URL.Path == prefix:
		head := r.URL.Query().Get("head")
		f.mu.Lock()
		f.heads = append(f.heads, head)
		f.mu.Unlock()
		out := []map[string]int{}
		if n, ok := f.pulls[head]; ok {
			out = append(out, map[string]int{"number": n})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case strings.HasPrefix(r.URL.Path, prefix+"/"):
		for n, d := range f.diffs {
			if r.URL.Path == prefix+"/"+strconv.Itoa(n) {
				_, _ = w.Write([]byte(d))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}
}

// seen returns the recorded Authorization, Accept and head values.
func (f *fakeGitHub) seen() (auth, accept, heads []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...), append([]string(nil), f.accept...), append([]string(nil), f.heads...)
}

func startGitHub(t *testing.T, f *fakeGitHub) string {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv.URL
}

func hosted(id string) diffsource.Hosted {
	return diffsource.Hosted{Owner: "octo", Repo: "hello", Identifier: id}
}

func TestFetchByNumber(t *testing.T) {
	gh := &fakeGitHub{diffs: map[int]string{42: sampleDiff}}
	url := startGitHub(t, gh)

	p, err := NewProvider(hosted("42"), "secret", url)
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if d.Text != sampleDiff {
		t.Errorf("unexpected diff text %q", d.Text)
	}
	if d.Source != "github:octo/hello#42" {
		t.Errorf("unexpected source %q", d.Source)
	}
	auth, accept, _ := gh.seen()
	if len(accept) != 1 || accept[0] != "application/vnd.github.v3.diff" {
		t.Fatalf("expected one diff request, got Accept headers %v", accept)
	}
	if auth[0] != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", auth[0])
	}
}

func TestFetchByBranch(t *testing.T) {
	gh := &fakeGitHub{
		pulls: map[string]int{"octo:feature/x": 7},
		diffs: map[int]string{7: sampleDiff},
	}
	url := startGitHub(t, gh)

	p, err := NewProvider(hosted("feature/x"), "", url)
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if d.Text != sampleDiff {
		t.Errorf("unexpected diff text %q", d.Text)
	}
	auth, _, heads := gh.seen()
	if len(heads) != 1 || heads[0] != "octo:feature/x" {
		t.Errorf("expected head filter octo:feature/x, got %v", heads)
	}
	if auth[0] != "" {
		t.Errorf("no token configured, got Authorization %q", auth[0])
	}
}

func TestFetchBranchWithoutPullRequest(t *testing.T) {
	url := startGitHub(t, &fakeGitHub{})

	p, err := NewProvider(hosted("nothing-here"), "", url)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Fetch(context.Background())
	if !errors.Is(err, ErrNoPullRequest) {
		t.Fatalf("expected ErrNoPullRequest, got %v", err)
	}
	if errors.Is(err, diffsource.ErrNoChanges) {
		t.Error("a missing pull request is not an empty diff")
	}
}

func TestFetchUnknownNumber(t *testing.T) {
	url := startGitHub(t, &fakeGitHub{})

	p, err := NewProvider(hosted("99"), "", url)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestFetchRateLimited(t *testing.T) {
	url := startGitHub(t, &fakeGitHub{limited: true})

	p, err := NewProvider(hosted("1"), "", url)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestOpenReportsEmptyPullRequest(t *testing.T) {
	url := startGitHub(t, &fakeGitHub{diffs: map[int]string{3: "\n"}})

	_, err := diffsource.Open(context.Background(), hosted("3"), diffsource.Deps{GitHubAPIURL: url})
	if !errors.Is(err, diffsource.ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
}

func TestNewProviderValidation(t *testing.T) {
	tests := []struct {
		name   string
		hosted diffsource.Hosted
		valid  bool
	}{
		{"number", diffsource.Hosted{Owner: "o", Repo: "r", Identifier: "1"}, true},
		{"branch", diffsource.Hosted{Owner: "o", Repo: "r", Identifier: "topic"}, true},
		{"missing owner", diffsource.Hosted{Repo: "r", Identifier: "1"}, false},
		{"slash in repo", diffsource.Hosted{Owner: "o", Repo: "r/x", Identifier: "1"}, false},
		{"missing identifier", diffsource.Hosted{Owner: "o", Repo: "r"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.hosted, "", "")
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInvalidNumber(t *testing.T) {
	p, err := NewProvider(hosted("0"), "", "http://127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Fetch(context.Background()); err == nil || !strings.Contains(err.Error(), "invalid pull request number") {
		t.Fatalf("expected invalid number error, got %v", err)
	}
}

func TestRegistration(t *testing.T) {
	src, err := diffsource.New(hosted("7"), diffsource.Deps{})
	if err != nil {
		t.Fatalf("expected github source to be registered: %v", err)
	}
	if src.Name() != "github" {
		t.Errorf("expected name 'github', got %q", src.Name())
	}
}
