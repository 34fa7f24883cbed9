package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"ghboard/internal/board"
	"ghboard/internal/errors"
	"ghboard/internal/kanban"
	"ghboard/internal/kv"
	"ghboard/internal/logger"
	"ghboard/internal/ratelimit"
	"ghboard/internal/remote"
	"ghboard/internal/usercfg"
)

// App holds everything a command needs, built once from the runtime config.
type App struct {
	Config  usercfg.Config
	Store   kv.Store
	Limiter *ratelimit.Limiter
	Sync    *remote.Sync
	Service *kanban.Service
	Token   usercfg.TokenSource
}

// cliNotifier is used outside the TUI; commands print the returned error
// themselves, so alerts only go to the debug log.
var cliNotifier = remote.NotifierFunc(func(err error) {
	logger.Debug("remote alert: %v", err)
})

// newApp opens storage and the GitHub sync for the configured repository.
func newApp(ctx context.Context, cfg usercfg.Config) (*App, error) {
	repo, err := cfg.RepoContext()
	if err != nil {
		return nil, err
	}

	path := cfg.Storage.Path
	if path == "" {
		path = usercfg.DataDir()
	}
	store, err := kv.Open(ctx, kv.Options{
		Backend:   cfg.Storage.Backend,
		Path:      path,
		RedisAddr: cfg.Storage.RedisAddr,
		RedisDB:   cfg.Storage.RedisDB,
		KeyPrefix: "ghboard:",
	})
	if err != nil {
		return nil, errors.NewStorageError("open", err)
	}

	limiter := ratelimit.New(ratelimit.WithWarningThreshold(cfg.RateLimit.WarningThreshold))
	token, source := usercfg.ResolveToken(cfg)
	sync, err := remote.New(limiter, cliNotifier, remote.Options{
		BaseURL: cfg.APIURL,
		Token:   token,
		Retries: 2,
	})
	if err != nil {
		store.Close()
		return nil, errors.NewConfigError("build GitHub client", err)
	}
	logger.Config("repository %s, storage %s, credential %s", repo, cfg.Storage.Backend, source)

	svc := kanban.New(repo, store, sync)
	svc.ClosedLimit = cfg.ClosedLimit
	return &App{
		Config:  cfg,
		Store:   store,
		Limiter: limiter,
		Sync:    sync,
		Service: svc,
		Token:   source,
	}, nil
}

// Close releases the storage backend.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		logger.Storage("close: %v", err)
	}
}

func (a *App) probeInterval() time.Duration {
	if s := a.Config.RateLimit.ProbeIntervalSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return ratelimit.DefaultProbeInterval
}

// rememberRepo makes repo the configured board and records it as recent.
func (a *App) rememberRepo(repo board.RepoContext) {
	cfg, err := usercfg.Load()
	if err != nil && err != usercfg.ErrNotConfigured {
		logger.Config("recent repos not saved: %v", err)
		return
	}
	cfg = cfg.WithRecentRepo(repo)
	cfg.Owner, cfg.Repo = repo.Owner, repo.Repo
	if err := usercfg.Save(cfg); err != nil {
		logger.Config("recent repos not saved: %v", err)
	}
}

// tuiLogOutput keeps log lines off the terminal while the TUI owns it.
func tuiLogOutput() io.Writer {
	if !verbose {
		return io.Discard
	}
	path := logger.DebugLogPath()
	if path == "" {
		return io.Discard
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return io.Discard
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return io.Discard
	}
	return f
}
