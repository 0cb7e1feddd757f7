package main

import (
	"errors"
	rand "math/rand/v2"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/packdraft/cmd/packdraft/shared"
	"github.com/lox/packdraft/internal/bot"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/randutil"
	"github.com/lox/packdraft/internal/server"
)

// ServerCmd contains core server configuration.
type ServerCmd struct {
	Addr         string `kong:"help='Server address, overrides the config file'"`
	Config       string `kong:"default='packdraft.hcl',help='HCL configuration file'"`
	Debug        bool   `kong:"help='Enable debug logging'"`
	CardDatabase string `kong:"help='Card database JSON file, overrides the config file'"`
	ArchiveDir   string `kong:"help='Directory for completed draft logs, overrides the config file'"`
	Seed         *int64 `kong:"help='Deterministic RNG seed for the server (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.CardDatabase != "" {
		cfg.Draft.CardDatabase = c.CardDatabase
	}
	if c.ArchiveDir != "" {
		cfg.Draft.ArchiveDir = c.ArchiveDir
	}
	if c.Seed != nil {
		cfg.Draft.Seed = *c.Seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The configured log file and level drive the server logger; --debug
	// overrides the level.
	logger := shared.SetupFileLogger(cfg.Server.LogFile, c.Debug)
	if !c.Debug {
		if level, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	var rng *rand.Rand
	seed := cfg.Draft.Seed
	if seed != 0 {
		logger.Info("Using deterministic seed", "seed", seed)
		rng = randutil.New(seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
		rng = randutil.New(seed)
	}

	db, err := cards.LoadDatabase(cfg.Draft.CardDatabase)
	if err != nil {
		return err
	}
	logger.Info("Card database loaded", "path", cfg.Draft.CardDatabase, "cards", db.Size())

	var oracle bot.Oracle
	switch cfg.Draft.Oracle {
	case "random":
		oracle = bot.NewRandomOracle(randutil.Fork(rng))
	default:
		oracle = bot.NewGreedyOracle(db, logger)
	}
	oracle = bot.WithFallback(oracle, randutil.Fork(rng), logger)

	srv := server.NewServer(addr, logger)
	registry := server.NewRegistry(srv, db, oracle, rng, quartz.NewReal(), cfg.GraceWindow(), cfg.Draft.ArchiveDir, logger)
	srv.SetRegistry(registry)

	logger.Info("Starting packdraft server",
		"address", addr,
		"oracle", cfg.Draft.Oracle,
		"grace", cfg.GraceWindow(),
		"archive_dir", cfg.Draft.ArchiveDir,
	)

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		return srv.Stop()
	})
	return g.Wait()
}
