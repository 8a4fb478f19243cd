// Package main is the entry point for the YieldWatch rebalancing service.
// It evaluates stored yield-staking portfolios against live market pools and
// serves rebalancing analyses, what-if simulations and analysis history over
// HTTP, with a periodic background sweep across all portfolios.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/yieldwatch/internal/clients/defillama"
	"github.com/aristath/yieldwatch/internal/config"
	"github.com/aristath/yieldwatch/internal/database"
	"github.com/aristath/yieldwatch/internal/marketcache"
	"github.com/aristath/yieldwatch/internal/modules/analysis"
	analysishandlers "github.com/aristath/yieldwatch/internal/modules/analysis/handlers"
	"github.com/aristath/yieldwatch/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/yieldwatch/internal/modules/portfolio/handlers"
	"github.com/aristath/yieldwatch/internal/modules/risk"
	"github.com/aristath/yieldwatch/internal/modules/simulation"
	simulationhandlers "github.com/aristath/yieldwatch/internal/modules/simulation/handlers"
	"github.com/aristath/yieldwatch/internal/scheduler"
	"github.com/aristath/yieldwatch/internal/server"
	"github.com/aristath/yieldwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting YieldWatch")

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "portfolio.db"),
		Name: "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer db.Close()

	if err := db.InitSchema(portfolio.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}

	cacheDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "market_cache.db"),
		Name: "market_cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market cache database")
	}
	defer cacheDB.Close()

	if err := cacheDB.InitSchema(marketcache.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize market cache schema")
	}

	// Collaborators: store, cached market data, risk scoring.
	repo := portfolio.NewRepository(db.Conn(), log)
	cacheRepo := marketcache.NewRepository(cacheDB.Conn())
	marketClient := defillama.NewClient(cfg.MarketDataURL, log)
	market := marketcache.NewCachedProvider(marketClient, cacheRepo, marketcache.DefaultTTL, log)
	riskScorer := risk.NewScorer(log)

	// The decision engine and the what-if simulator.
	analysisService := analysis.NewService(repo, market, riskScorer, cfg.Engine, log)
	simulator := simulation.NewSimulator(repo, log)

	srv := server.New(server.Config{
		Log:                log,
		Port:               cfg.Port,
		DevMode:            cfg.DevMode,
		PortfolioHandlers:  portfoliohandlers.NewHandler(repo, log),
		AnalysisHandlers:   analysishandlers.NewHandler(analysisService, repo, cfg.Engine, log),
		SimulationHandlers: simulationhandlers.NewHandler(simulator, log),
	})

	sched := scheduler.New(log)
	sweep := scheduler.NewAnalysisSweepJob(analysisService, repo, log)
	if err := sched.AddJob(cfg.AnalysisSchedule, sweep); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.AnalysisSchedule).Msg("Failed to register analysis sweep")
	}
	cleanup := marketcache.NewCleanupJob(cacheRepo, log)
	if err := sched.AddJob("@daily", cleanup); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup")
	}
	sched.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("YieldWatch stopped")
}
