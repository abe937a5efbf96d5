package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/JoshCap20/areion/internal/api"
	"github.com/JoshCap20/areion/internal/config"
	"github.com/JoshCap20/areion/internal/engine"
	"github.com/JoshCap20/areion/internal/handlers"
	httptask "github.com/JoshCap20/areion/internal/handlers/http"
	"github.com/JoshCap20/areion/internal/handlers/shell"
	"github.com/JoshCap20/areion/internal/history"
	"github.com/JoshCap20/areion/internal/logging"
	"github.com/JoshCap20/areion/internal/orchestrator"
	"github.com/JoshCap20/areion/internal/server"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "optional YAML config file")
		addr    = flag.String("addr", "", "HTTP bind address (overrides config)")
		dbPath  = flag.String("db", "", "SQLite DB path (overrides config)")
		workers = flag.Int("workers", 0, "number of worker goroutines (overrides config)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *workers > 0 {
		cfg.Tasks.MaxWorkers = *workers
	}

	logger := logging.NewConsole(os.Stdout, cfg.LogLevel)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := history.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}
	store := history.NewStore(db)

	orch, err := orchestrator.New(orchestrator.Options{
		MaxWorkers:   cfg.Tasks.MaxWorkers,
		QueueSize:    cfg.Tasks.QueueSize,
		DrainTimeout: cfg.Tasks.DrainTimeoutValue(),
		Logger:       logger,
		Recorder:     store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	registry := handlers.NewRegistry()
	registry.Register("shell", shell.Shell{})
	registry.Register("http", httptask.HTTP{})

	var eng engine.Engine
	if cfg.TemplateDir != "" {
		eng, err = engine.NewHTML(cfg.TemplateDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.TemplateDir).Msg("load templates")
		}
	}

	apiHandler := api.NewServer(api.Config{
		Orchestrator: orch,
		Store:        store,
		Handlers:     registry,
		Engine:       eng,
	})

	srv := server.New().
		WithAddr(cfg.Addr).
		WithHandler(apiHandler).
		WithLogger(logger).
		WithOrchestrator(bootOrchestrator{orch: orch, store: store, cfg: cfg, registry: registry, logger: logger})

	if cfg.StaticDir != "" {
		srv = srv.WithStaticDir(cfg.StaticDir)
	}

	if err := srv.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
