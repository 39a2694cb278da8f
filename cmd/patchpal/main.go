// Command patchpal brokers patch reviews: submitters send a diff and block
// until a human reviewer accepts or rejects it in the server's terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Strob0t/patchpal/internal/config"
	"github.com/Strob0t/patchpal/internal/logger"
	"github.com/Strob0t/patchpal/internal/service"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	verbose    int
	configPath string
}

// cliFlags turns the global options into config overrides.
func (g *globalOptions) cliFlags() config.CLIFlags {
	flags := config.CLIFlags{}
	if g.configPath != "" {
		flags.ConfigPath = &g.configPath
	}
	if lvl := logger.VerbosityLevel(g.verbose, ""); lvl != "" {
		flags.LogLevel = &lvl
	}
	return flags
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch code := service.ExitCode(err); code {
	case service.ExitAccepted:
		return code
	case service.ExitRejected:
		fmt.Fprintln(os.Stderr, "patch rejected")
		return code
	default:
		slog.Error("fatal", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		return code
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	client := &clientOptions{}

	root := &cobra.Command{
		Use:   "patchpal [metadata]",
		Short: "Submit patches for human review and wait for the verdict",
		Long: `patchpal brokers patch reviews between automated submitters and a human.

Run "patchpal server" in a terminal to review incoming patches. Submitters
run "patchpal" (or "patchpal client") to send the uncommitted changes of a
git repository, or a GitHub pull request, and exit with:
  0  accepted
  1  rejected
  2  anything else`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), g, client, args)
		},
	}

	root.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to the YAML config file (default "+config.DefaultConfigFile+")")
	client.bind(root)

	root.AddCommand(newClientCmd(g), newServerCmd(g))
	return root
}
