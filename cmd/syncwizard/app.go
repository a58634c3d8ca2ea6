package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mark3labs/syncwizard/internal/config"
	"github.com/mark3labs/syncwizard/internal/fetcher"
	"github.com/mark3labs/syncwizard/internal/hooks"
	"github.com/mark3labs/syncwizard/internal/journal"
	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/nats"
	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/state"
)

// app is everything a wizard run needs, wired from the loaded config.
type app struct {
	cfg      *config.Config
	ctrl     *setup.Controller
	state    *state.WizardState
	identity setup.Identity

	journal  *nats.Journal
	recorder *journal.Recorder
	hooks    *hooks.Runner
}

type appOptions struct {
	// hookOutput receives hook output; nil sends it to the log only.
	hookOutput io.Writer
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*preset.Catalog, error) {
	catalog, err := preset.Default()
	if err != nil {
		return nil, err
	}
	if cfg.PresetsFile == "" {
		return catalog, nil
	}
	extra, err := preset.LoadFile(cfg.PresetsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	return preset.Merge(catalog, extra)
}

func openJournal(ctx context.Context, cfg *config.Config) (*nats.Journal, *journal.Store, error) {
	j, err := nats.Open(ctx, filepath.Join(cfg.DataDir, "nats"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, journal.NewStore(j.JS, j.Stream), nil
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		state:    state.Load(cfg.DataDir),
		identity: setup.Identity{Name: cfg.Name, Email: cfg.Email},
	}
	engine := fetcher.New(fetcher.Config{
		ProjectsDir: cfg.ProjectsDir,
		Workers:     cfg.Workers,
	})
	a.ctrl = setup.New(setup.Config{
		Catalog:          catalog,
		Engine:           engine,
		Identity:         a.identity,
		Remembered:       a.state.Remembered,
		ProgressInterval: cfg.ProgressInterval(),
	})

	if cfg.Journal {
		j, store, err := openJournal(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.journal = j
		a.recorder = journal.NewRecorder(store, "wizard")
		a.recorder.Start(context.WithoutCancel(ctx))
		a.ctrl.Subscribe(a.recorder)
	}

	hooksCfg, err := hooks.LoadConfig(".")
	if err != nil {
		a.close()
		return nil, err
	}
	if hooksCfg != nil {
		a.hooks = hooks.NewRunner(ctx, hooksCfg, ".")
		a.hooks.Dir = func(folder string) string {
			return fetcher.TargetDir(cfg.ProjectsDir, folder)
		}
		a.hooks.Output = func(hook, output string) {
			logger.Info("%s hook output: %s", hook, output)
			if opts.hookOutput != nil && strings.TrimSpace(output) != "" {
				_, _ = fmt.Fprintf(opts.hookOutput, "[%s]\n%s\n", hook, strings.TrimRight(output, "\n"))
			}
		}
		a.ctrl.Subscribe(a.hooks)
	}

	return a, nil
}

// targetDir returns where folder was placed.
func (a *app) targetDir(folder string) string {
	return fetcher.TargetDir(a.cfg.ProjectsDir, folder)
}

// close waits for hooks, persists what the run should remember and shuts the
// journal down.
func (a *app) close() {
	if a.hooks != nil {
		a.hooks.Wait()
	}

	a.state.Remembered = a.ctrl.Remembered()
	if a.recorder != nil {
		a.recorder.Close()
		if run := a.recorder.Run(); run != "" {
			a.state.LastRun = run
		}
	}
	if err := state.Save(a.cfg.DataDir, a.state); err != nil {
		logger.Warn("Failed to save wizard state: %v", err)
	}

	if id := a.ctrl.Identity(); id != a.identity && id.Name != "" {
		if err := config.SaveIdentity(id.Name, id.Email); err != nil {
			logger.Warn("Failed to save identity: %v", err)
		}
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warn("Failed to close journal: %v", err)
		}
	}
}
