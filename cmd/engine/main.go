package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evsite/tankleague/internal/config"
	"github.com/evsite/tankleague/internal/database"
	"github.com/evsite/tankleague/internal/notify"
	"github.com/evsite/tankleague/internal/repositories"
	"github.com/evsite/tankleague/internal/services"
	"github.com/evsite/tankleague/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize logger
	logger.Init()
	defer logger.Sync()

	logger.Info("Starting league economy engine...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	// Connect to database with TLS
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	// Run GORM auto-migration
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	teams := repositories.NewTeamRepository(db)
	tanks := repositories.NewTankRepository(db)
	imports := repositories.NewImportRepository(db)
	logs := repositories.NewLogRepository(db)
	matches := repositories.NewMatchRepository(db)
	boosters := repositories.NewBoosterRepository(db)

	resolver := services.NewResolverService(db, teams, tanks)
	ledger := services.NewLedgerService(db, teams, tanks, logs, matches, boosters, resolver)
	importSvc := services.NewImportService(db, teams, tanks, imports, ledger, cfg.ImportBatchSize)
	sink := notify.NewDiscordSink(cfg.WebhookURLSchedule, cfg.WebhookURLResult, cfg.WebhookURLCalc)
	rewardSvc := services.NewRewardService(db, teams, matches, boosters, logs, ledger, sink)
	announcer := services.NewAnnouncerService(db, teams, matches, sink)

	logger.Info("Engine started successfully", "env", cfg.AppEnv)

	runPeriodic := func() {
		if err := importSvc.GenerateWeeklyImports(time.Now().UTC()); err != nil {
			logger.Error("Weekly import generation failed", "error", err)
		}
		if ids, err := matches.ListUnannouncedScheduleIDs(); err != nil {
			logger.Error("Failed to list unannounced matches", "error", err)
		} else {
			for _, id := range ids {
				if err := announcer.AnnounceSchedule(id); err != nil {
					logger.Error("Schedule announcement failed", "match_id", id, "error", err)
				}
			}
		}
		if ids, err := matches.ListUnannouncedResultIDs(); err != nil {
			logger.Error("Failed to list unannounced results", "error", err)
		} else {
			for _, id := range ids {
				if err := announcer.AnnounceResult(id); err != nil {
					logger.Error("Result announcement failed", "match_id", id, "error", err)
				}
			}
		}
		ids, err := matches.ListUncalcedMatchIDs()
		if err != nil {
			logger.Error("Failed to list pending matches", "error", err)
			return
		}
		for _, id := range ids {
			if err := rewardSvc.CalculateRewards(id, "engine"); err != nil {
				logger.Error("Reward calculation failed", "match_id", id, "error", err)
			}
		}
	}

	ticker := time.NewTicker(cfg.GetImportCheckInterval())
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				runPeriodic()
			}
		}
	}()

	runPeriodic()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	ticker.Stop()
	close(done)
	logger.Info("Engine stopped")
}
