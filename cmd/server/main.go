package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/auditflow/internal/api"
	"github.com/gyaneshwarpardhi/auditflow/internal/auth"
	"github.com/gyaneshwarpardhi/auditflow/internal/checkpoint"
	"github.com/gyaneshwarpardhi/auditflow/internal/config"
	"github.com/gyaneshwarpardhi/auditflow/internal/fetch"
	"github.com/gyaneshwarpardhi/auditflow/internal/filter"
	"github.com/gyaneshwarpardhi/auditflow/internal/logging"
	"github.com/gyaneshwarpardhi/auditflow/internal/poll"
	"github.com/gyaneshwarpardhi/auditflow/internal/sink"
)

func main() {
	cfgPath := flag.String("config", "configs/auditflow.yaml", "Path to YAML config")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	// ── Sink registry ─────────────────────────────────────────────────────────
	sinks := sink.Defaults()

	// ── Load config ───────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath, func(c *config.Config) error {
		return config.Validate(c, sinks)
	})
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	// ── Build pollers ─────────────────────────────────────────────────────────
	client := &http.Client{Timeout: 30 * time.Second}
	var pollers []*poll.Poller
	var openSinks []sink.Sink
	for _, in := range cfg.Inputs {
		var flt *filter.Filter
		if in.Filter != "" {
			flt, err = filter.Compile(in.Filter)
			if err != nil {
				slog.Error("filter compile failed", "input", in.Name, "err", err)
				os.Exit(1)
			}
		}

		var named []poll.NamedSink
		for _, sd := range in.Sinks {
			f, err := sinks.Get(sd.Type)
			if err != nil {
				slog.Error("unknown sink type", "input", in.Name, "err", err)
				os.Exit(1)
			}
			s, err := f.New(sd.Params)
			if err != nil {
				slog.Error("sink setup failed", "input", in.Name, "sink", sd.Type, "err", err)
				os.Exit(1)
			}
			named = append(named, poll.NamedSink{Type: sd.Type, Sink: s})
			openSinks = append(openSinks, s)
		}

		pollers = append(pollers, poll.New(poll.Options{
			Name:     in.Name,
			Tenant:   in.Tenant,
			Endpoint: in.Endpoint,
			Interval: time.Duration(in.IntervalSeconds) * time.Second,
			Filter:   flt,
			Tokens:   auth.NewManager(client, in.Name, in.Endpoint, in.Tenant, in.KeyID, in.KeySecret),
			Fetcher:  fetch.New(client, in.Endpoint, in.Tenant),
			Store:    checkpoint.New(cfg.CheckpointDir, in.Name),
			Sinks:    named,
			Log:      logger,
		}))
	}
	slog.Info("pollers built", "inputs", len(pollers))

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// The loader validates before swapping, so callbacks only ever see a
	// config that passed config.Validate.
	loader.OnChange(func(newCfg *config.Config) {
		applyReload(pollers, newCfg)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── Start pollers ─────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poll.Poller) {
			defer wg.Done()
			p.Run(ctx)
		}(p)
	}

	// ── Status HTTP server ────────────────────────────────────────────────────
	handler := api.New(pollers, loader)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("status server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop pollers between cycles
	wg.Wait()
	for _, s := range openSinks {
		if err := s.Close(); err != nil {
			slog.Warn("sink close failed", "err", err)
		}
	}
	slog.Info("goodbye")
}

// applyReload pushes interval and filter changes to running pollers.
// Structural changes (inputs added or removed, identity or sink changes)
// need a restart; they are logged and otherwise ignored.
func applyReload(pollers []*poll.Poller, cfg *config.Config) {
	byName := make(map[string]config.Input, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		byName[in.Name] = in
	}
	seen := make(map[string]bool, len(pollers))
	for _, p := range pollers {
		in, ok := byName[p.Name()]
		if !ok {
			slog.Warn("input removed from config; restart required to stop it", "input", p.Name())
			continue
		}
		seen[p.Name()] = true
		var flt *filter.Filter
		if in.Filter != "" {
			// Validate ran before applyReload, so this cannot fail.
			flt, _ = filter.Compile(in.Filter)
		}
		p.Reconfigure(time.Duration(in.IntervalSeconds)*time.Second, flt)
	}
	for name := range byName {
		if !seen[name] {
			slog.Warn("input added to config; restart required to start it", "input", name)
		}
	}
	slog.Info("config hot-reloaded", "inputs", len(cfg.Inputs))
}
