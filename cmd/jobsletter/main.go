// Command jobsletter sends the weekly jobs letter through Mailjet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jobbsy/jobsletter/internal/api"
	"github.com/jobbsy/jobsletter/internal/config"
	"github.com/jobbsy/jobsletter/internal/jobsletter"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/schedule"
	"github.com/jobbsy/jobsletter/internal/sentry"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}

	cfg, err := config.LoadFromEnv(cmd.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("config: invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor, err := newMonitor(cfg)
	if err != nil {
		logger.Error("sentry: could not register monitor", "error", err)
		return 1
	}
	defer sentry.Recover(ctx, monitor)

	a, err := newApp(ctx, cfg, monitor, stdout)
	if err != nil {
		logger.Error("startup failed", "error", err)
		_ = monitor.CaptureError(ctx, err)
		return 1
	}
	defer a.Close()

	switch cmd.name {
	case "send":
		return a.sender.Execute(ctx, jobsletter.Options{
			TestMode:      cmd.testMode,
			TestRecipient: cmd.testRecipient,
		}).ExitCode()
	case "run-scheduled":
		return runScheduled(ctx, a)
	default:
		if cmd.statusAddr == "" {
			cmd.statusAddr = cfg.Schedule.StatusAddr
		}
		return runDaemon(ctx, a, cmd.statusAddr)
	}
}

func runScheduled(ctx context.Context, a *app) int {
	s, err := a.scheduler()
	if err != nil {
		logger.Error("schedule: setup failed", "error", err)
		return 1
	}
	r, err := s.RunNow(ctx, schedule.JobsLetterTaskName)
	if err != nil {
		logger.Error("schedule: run failed", "error", err)
		return 1
	}
	if r.Skipped || r.Succeeded() {
		return jobsletter.Success.ExitCode()
	}
	return jobsletter.Failure.ExitCode()
}

func runDaemon(ctx context.Context, a *app, statusAddr string) int {
	s, err := a.scheduler()
	if err != nil {
		logger.Error("schedule: setup failed", "error", err)
		return 1
	}
	s.Start()
	logger.Info("schedule: daemon started", "timezone", a.cfg.Schedule.Timezone)

	var srv *api.Server
	if statusAddr != "" {
		var letters api.LetterFetcher
		if a.archive != nil {
			letters = a.archive
		}
		srv = api.NewServer(s, letters, a.monitor)
		go func() {
			logger.Info("api: status server listening", "addr", statusAddr)
			if err := srv.ListenAndServe(statusAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api: status server stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("schedule: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api: shutdown", "error", err)
		}
	}
	if err := s.Stop(shutdownCtx); err != nil {
		logger.Warn("schedule: stop", "error", err)
		return 1
	}
	return 0
}
