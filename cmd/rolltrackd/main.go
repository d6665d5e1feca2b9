// rolltrackd - label printer roll tracking daemon
//
// rolltrackd watches a directory of encoding log exports, attributes newly
// appended pass/fail rows to the roll currently running on each printer,
// and persists jobs and their roll history in SQLite. A local HTTP and
// WebSocket surface serves the operator front end.
//
//	rolltrackd -config /path/to/config.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rolltrackd/internal/api"
	"rolltrackd/internal/config"
	"rolltrackd/internal/counter"
	"rolltrackd/internal/ingest"
	"rolltrackd/internal/job"
	"rolltrackd/internal/logging"
	"rolltrackd/internal/monitor"
	"rolltrackd/internal/store"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: "+config.ConfigPath()+")")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("rolltrackd", Version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "rolltrackd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	manager := job.NewManager(st)
	parser := ingest.NewParser(cfg.Watch.FallbackPrinter)
	reader := ingest.NewReader(parser)
	agg := counter.NewAggregator()

	mon, err := monitor.New(monitor.Options{
		Dir:            cfg.Watch.Dir,
		Extension:      cfg.Watch.Extension,
		IngestExisting: cfg.Watch.IngestExisting,
	}, reader, agg)
	if err != nil {
		return err
	}

	if err := mon.Start(); err != nil {
		return err
	}

	hub := api.NewHub()

	// Fan aggregator snapshots out to the open jobs and the front end.
	go func() {
		for update := range mon.Updates() {
			manager.Dispatch(update.Counters)
			hub.BroadcastCounters(update.Counters)
		}
	}()
	go func() {
		for err := range mon.Errors() {
			logging.Warn("ingestion error", "error", err)
		}
	}()

	var server *http.Server
	if cfg.HTTP.Enabled {
		e := api.NewServer(&api.Dependencies{
			Store:      st,
			Manager:    manager,
			Aggregator: agg,
			Hub:        hub,
			Version:    Version,
		})
		server = &http.Server{Addr: cfg.HTTP.Addr, Handler: e}
		go func() {
			logging.Info("http surface listening", "addr", cfg.HTTP.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("http server stopped", "error", err)
			}
		}()
	}

	logging.Info("rolltrackd started", "version", Version, "watch_dir", cfg.Watch.Dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("shutting down", "signal", sig.String())

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.Warn("http shutdown", "error", err)
		}
	}

	if err := mon.Stop(); err != nil {
		logging.Warn("monitor shutdown", "error", err)
	}

	return nil
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return err
	}

	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "rolltrackd",
	})
	if err != nil {
		return err
	}

	logging.SetDefault(logger)
	return nil
}
