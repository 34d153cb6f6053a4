package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/services/aggregation"
	"github.com/luminahq/insight-engine/internal/services/credits"
	"github.com/luminahq/insight-engine/internal/services/events"
	"github.com/luminahq/insight-engine/internal/services/insights"
	"github.com/luminahq/insight-engine/internal/services/knowledge"
	"github.com/luminahq/insight-engine/internal/services/llm"
	"github.com/luminahq/insight-engine/internal/services/scheduler"
	badgerstorage "github.com/luminahq/insight-engine/internal/storage/badger"
)

// configPaths is a custom flag type allowing multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("insight-engine version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover a config file next to the binary when none is given
	if len(configFiles) == 0 {
		if _, err := os.Stat("insight-engine.toml"); err == nil {
			configFiles = append(configFiles, "insight-engine.toml")
		}
	}

	// Startup order: config -> logger -> banner -> storage -> services
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("storage_path", config.Storage.Badger.Path).
		Str("default_model", config.LLM.DefaultModel).
		Bool("scheduler_enabled", config.Scheduler.Enabled).
		Msg("Starting insight engine")

	manager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
		os.Exit(1)
	}

	// Service wiring
	eventService := events.NewService(logger)
	creditService := credits.NewService(manager.CreditStorage(), config.Credits.InitialGrant)
	aggregationService := aggregation.NewService(manager.InsightStorage(), logger)
	knowledgeService := knowledge.NewService(manager.DocumentStorage(), logger)
	router := llm.NewRouter(config, manager.KeyValueStorage(), logger)

	orchestrator := insights.NewOrchestrator(
		manager.InsightStorage(),
		creditService,
		aggregationService,
		knowledgeService,
		router,
		eventService,
		logger,
	)

	schedulerService := scheduler.NewService(
		manager.JobStorage(),
		creditService,
		orchestrator,
		eventService,
		&config.Scheduler,
		logger,
	)

	ctx := context.Background()
	if config.Scheduler.Enabled {
		if err := schedulerService.Initialize(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize scheduler")
			os.Exit(1)
		}
	} else {
		logger.Info().Msg("Scheduler disabled by configuration")
	}

	// Periodic storage maintenance
	gcTicker := time.NewTicker(10 * time.Minute)
	gcDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-gcTicker.C:
				if err := manager.RunGC(); err != nil {
					logger.Warn().Err(err).Msg("Storage maintenance failed")
				}
			case <-gcDone:
				return
			}
		}
	}()

	logger.Info().Msg("Insight engine ready")

	// Block until shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	gcTicker.Stop()
	close(gcDone)
	schedulerService.Stop()
	eventService.Close()
	if err := router.Close(); err != nil {
		logger.Warn().Err(err).Msg("Error closing model router")
	}
	if err := manager.Close(); err != nil {
		logger.Warn().Err(err).Msg("Error closing storage")
	}

	logger.Info().Msg("Shutdown complete")
}
