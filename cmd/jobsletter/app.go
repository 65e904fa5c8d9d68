package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/jobbsy/jobsletter/internal/config"
	"github.com/jobbsy/jobsletter/internal/jobsletter"
	"github.com/jobbsy/jobsletter/internal/mailing"
	"github.com/jobbsy/jobsletter/internal/mailjet"
	"github.com/jobbsy/jobsletter/internal/pkg/distlock"
	"github.com/jobbsy/jobsletter/internal/pkg/httputil"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/repository/postgres"
	"github.com/jobbsy/jobsletter/internal/routing"
	"github.com/jobbsy/jobsletter/internal/schedule"
	"github.com/jobbsy/jobsletter/internal/sentry"
	"github.com/jobbsy/jobsletter/internal/storage"
	"github.com/redis/go-redis/v9"
)

// app holds the wired collaborators of one process.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	redis   *redis.Client
	monitor sentry.Monitor
	archive *storage.S3Archive
	sender  *jobsletter.Sender
}

// newMonitor registers Sentry in production only.
func newMonitor(cfg *config.Config) (sentry.Monitor, error) {
	if !cfg.SentryEnabled() {
		return sentry.Nop{}, nil
	}
	client, err := sentry.NewClient(sentry.Options{
		DSN:          cfg.Sentry.DSN,
		Environment:  cfg.Env,
		Release:      version,
		Timeout:      cfg.Sentry.Timeout(),
		IgnoreErrors: httputil.IgnoredErrors(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sentry: monitoring enabled", "environment", cfg.Env)
	return client, nil
}

func newApp(ctx context.Context, cfg *config.Config, monitor sentry.Monitor, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, monitor: monitor}

	db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a.db = db

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
	}

	router := routing.NewRouter(routing.DefaultRoutes())
	router.SetContext(routing.Context{
		Host:     cfg.Router.Host,
		Scheme:   cfg.Router.Scheme,
		BasePath: cfg.Router.BasePath,
	})
	templates, err := mailing.NewTemplateService(router)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := jobsletter.Deps{
		Jobs:     postgres.NewJobRepo(db),
		Renderer: templates,
		Campaign: mailjet.NewClient(mailjet.Config{
			BaseURL:   cfg.Mailjet.BaseURL,
			APIKey:    cfg.Mailjet.APIKey,
			SecretKey: cfg.Mailjet.SecretKey,
			Timeout:   cfg.Mailjet.Timeout(),
		}),
		Links:   router,
		Monitor: monitor,
		Out:     out,
	}

	if cfg.Archive.Enabled() {
		archive, err := storage.NewS3Archive(ctx, cfg.Archive.Bucket, cfg.Archive.Region, cfg.Archive.AWSProfile, cfg.Archive.Prefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.archive = archive
		deps.Archive = archive
	}

	a.sender = jobsletter.NewSender(deps, jobsletter.Settings{
		ContactListID: cfg.Mailjet.ContactListID,
		SenderID:      cfg.Mailjet.SenderID,
		RouterHost:    cfg.Router.Host,
		RouterScheme:  cfg.Router.Scheme,
	})
	return a, nil
}

// scheduler builds the daemon with the weekly task guarded by an overlap
// lock.
func (a *app) scheduler() (*schedule.Scheduler, error) {
	loc, err := a.cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}
	task := schedule.JobsLetterTask(a.sender, a.monitor, a.cfg.Sentry.MonitorSlug)
	task.Lock = distlock.NewLock(a.redis, a.db, schedule.JobsLetterTaskName, a.cfg.Schedule.LockTTL())

	s := schedule.New(loc)
	s.SetMonitor(a.monitor)
	if err := s.Add(task); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
