// Package githubpr implements a diffsource.Source for GitHub pull requests.
package githubpr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

const (
	providerName = "github"
	fetchTimeout = 30 * time.Second
)

// ErrNoPullRequest is returned when a branch has no open pull request.
var ErrNoPullRequest = errors.New("githubpr: no open pull request")

// Provider fetches a pull request diff from the GitHub REST API.
type Provider struct {
	client *github.Client
	hosted diffsource.Hosted
}

// NewProvider validates hosted and builds an API client. An empty token makes
// anonymous requests; apiURL selects a GitHub Enterprise server.
func NewProvider(hosted diffsource.Hosted, token, apiURL string) (*Provider, error) {
	if _, _, err := diffsource.ParseRepo(hosted.Slug()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(hosted.Identifier) == "" {
		return nil, errors.New("githubpr: missing pull request number or branch name")
	}

	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if apiURL != "" {
		var err error
		if client, err = client.WithEnterpriseURLs(apiURL, apiURL); err != nil {
			return nil, fmt.Errorf("githubpr: api url: %w", err)
		}
	}
	return &Provider{client: client, hosted: hosted}, nil
}

func (p *Provider) Name() string { return providerName }

// Fetch returns the diff of the pull request. A numeric identifier is a pull
// request number; anything else names the head branch of an open one.
func (p *Provider) Fetch(ctx context.Context) (diffsource.Diff, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	number, err := p.resolve(ctx)
	if err != nil {
		return diffsource.Diff{}, err
	}

	text, resp, err := p.client.PullRequests.GetRaw(ctx, p.hosted.Owner, p.hosted.Repo, number,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		return diffsource.Diff{}, describe(fmt.Sprintf("pull request %s#%d", p.hosted.Slug(), number), resp, err)
	}
	return diffsource.Diff{Text: text, Source: p.hosted.String()}, nil
}

func (p *Provider) resolve(ctx context.Context) (int, error) {
	if n, err := strconv.Atoi(p.hosted.Identifier); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("githubpr: invalid pull request number %d", n)
		}
		return n, nil
	}

	pulls, resp, err := p.client.PullRequests.List(ctx, p.hosted.Owner, p.hosted.Repo, &github.PullRequestListOptions{
		State:       "open",
		Head:        p.hosted.Owner + ":" + p.hosted.Identifier,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return 0, describe("list pull requests of "+p.hosted.Slug(), resp, err)
	}
	if len(pulls) == 0 {
		return 0, fmt.Errorf("%w for branch %q in %s", ErrNoPullRequest, p.hosted.Identifier, p.hosted.Slug())
	}
	return pulls[0].GetNumber(), nil
}

// describe wraps API errors, calling out rate limiting and missing access.
func describe(what string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return fmt.Errorf("githubpr: %s: rate limited, set a token: %w", what, err)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("githubpr: %s: not found or not visible with the current token: %w", what, err)
	default:
		return fmt.Errorf("githubpr: %s: %w", what, err)
	}
}
