package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Strob0t/patchpal/internal/config"
	"github.com/Strob0t/patchpal/internal/git"
	"github.com/Strob0t/patchpal/internal/logger"
	"github.com/Strob0t/patchpal/internal/port/diffsource"
	"github.com/Strob0t/patchpal/internal/service"
)

// clientOptions select where the diff comes from and where it goes.
type clientOptions struct {
	path       string
	repo       string
	branchName string
	prNumber   int
	url        string
}

func (o *clientOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	// -C matches git's flag for changing the repository path.
	f.StringVarP(&o.path, "path", "C", "", "path inside the local git repository (default .)")
	f.StringVarP(&o.repo, "repo", "r", "", "GitHub repository as owner/repo")
	f.StringVarP(&o.branchName, "branch-name", "b", "", "identify the pull request by head branch name (requires --repo)")
	f.IntVarP(&o.prNumber, "pr-number", "n", 0, "identify the pull request by number (requires --repo)")
	f.StringVar(&o.url, "url", "", "broker web-socket URL (default "+config.Defaults().Client.URL+")")

	cmd.MarkFlagsMutuallyExclusive("path", "repo")
	cmd.MarkFlagsMutuallyExclusive("path", "branch-name")
	cmd.MarkFlagsMutuallyExclusive("path", "pr-number")
	cmd.MarkFlagsMutuallyExclusive("branch-name", "pr-number")
}

// mode resolves the flags into a diff source mode.
func (o *clientOptions) mode() (diffsource.Mode, error) {
	hasID := o.branchName != "" || o.prNumber != 0
	switch {
	case o.repo == "" && hasID:
		return nil, fmt.Errorf("--branch-name and --pr-number require --repo")
	case o.repo == "":
		return diffsource.Local{Path: o.path}, nil
	case !hasID:
		return nil, fmt.Errorf("--repo requires --pr-number or --branch-name")
	}

	owner, repo, err := diffsource.ParseRepo(o.repo)
	if err != nil {
		return nil, err
	}
	id := o.branchName
	if o.prNumber != 0 {
		if o.prNumber < 0 {
			return nil, fmt.Errorf("invalid --pr-number %d", o.prNumber)
		}
		id = strconv.Itoa(o.prNumber)
	}
	return diffsource.Hosted{Owner: owner, Repo: repo, Identifier: id}, nil
}

func newClientCmd(g *globalOptions) *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "client [metadata]",
		Short: "Submit a diff and wait for the reviewer's decision (default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), g, opts, args)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runClient(ctx context.Context, g *globalOptions, opts *clientOptions, args []string) error {
	mode, err := opts.mode()
	if err != nil {
		return err
	}

	flags := g.cliFlags()
	if opts.url != "" {
		flags.URL = &opts.url
	}
	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return err
	}

	log, closer := logger.New(cfg.Logging, os.Stderr)
	defer closer.Close()
	slog.SetDefault(log)

	metadata := ""
	if len(args) == 1 {
		metadata = args[0]
	}

	deps := diffsource.Deps{
		Pool:         git.NewPool(cfg.Git.MaxConcurrent),
		GitHubToken:  cfg.GitHub.Token,
		GitHubAPIURL: cfg.GitHub.APIURL,
	}
	_, err = service.NewSubmitter(cfg.Client, mode, deps, metadata).Submit(ctx)
	return err
}
