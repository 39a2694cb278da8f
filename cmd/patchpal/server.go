package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/Strob0t/patchpal/internal/adapter/otel"
	"github.com/Strob0t/patchpal/internal/adapter/ws"
	"github.com/Strob0t/patchpal/internal/broker"
	"github.com/Strob0t/patchpal/internal/config"
	"github.com/Strob0t/patchpal/internal/logger"
	"github.com/Strob0t/patchpal/internal/port/notifier"
	"github.com/Strob0t/patchpal/internal/service"
	"github.com/Strob0t/patchpal/internal/tui"
)

func newServerCmd(g *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept submissions and review them interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := g.cliFlags()
			if addr != "" {
				flags.Addr = &addr
			}
			return runServer(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+config.Defaults().Server.Addr+")")
	return cmd
}

func runServer(ctx context.Context, flags config.CLIFlags) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("server needs an interactive terminal")
	}

	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return err
	}

	// The terminal belongs to the review display, so logs go to a file.
	log, closer, err := logger.OpenFile(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)
	slog.Info("config loaded",
		"path", cfgPath,
		"addr", cfg.Server.Addr,
		"max_pending", cfg.Broker.MaxPending,
		"decision_timeout", cfg.Review.DecisionTimeout,
	)

	shutdownMetrics, err := setupMetrics(cfg)
	if err != nil {
		return err
	}
	defer shutdownMetrics()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	notes := service.NewNotificationService(openNotifiers(cfg)...)
	defer notes.Close()

	queue := broker.NewQueue(cfg.Broker.MaxPending)
	srv := ws.NewServer(queue, ws.Options{
		DecisionTimeout: cfg.Review.DecisionTimeout,
		MaxMessageBytes: cfg.Broker.MaxMessageBytes,
		Metrics:         metrics,
		ServiceName:     cfg.Logging.Service,
	})
	if err := srv.Listen(cfg.Server.Addr); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	loop := service.NewReviewLoop(queue, service.ReviewOptions{
		TickInterval: cfg.Review.TickInterval,
		Notifier:     notes,
		Observer: func(s service.Snapshot) {
			program.Send(tui.SnapshotMsg(s))
		},
	})
	program = tea.NewProgram(tui.New(loop.Press), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		// Leaving the loop ends the session for everyone.
		defer cancel()
		return loop.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("display: %w", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped", "error", err)
	return err
}

// setupMetrics installs the periodic metric exporter when enabled. Metric
// snapshots are appended to the log file.
func setupMetrics(cfg *config.Config) (func(), error) {
	if !cfg.Metrics.Enabled {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("metrics: open output: %w", err)
	}
	shutdown, err := otel.InitMetrics(f, cfg.Metrics.Interval, cfg.Logging.Service)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("metrics shutdown", "error", err)
		}
		_ = f.Close()
	}, nil
}

// openNotifiers connects the configured decision sinks. A sink that cannot
// be reached is logged and skipped; reviews never depend on it.
func openNotifiers(cfg *config.Config) []notifier.Notifier {
	if cfg.NATS.URL == "" {
		return nil
	}
	n, err := notifier.New("nats", map[string]string{
		"url":     cfg.NATS.URL,
		"subject": cfg.NATS.Subject,
	})
	if err != nil {
		slog.Warn("decision audit disabled", "error", err)
		return nil
	}
	return []notifier.Notifier{n}
}
