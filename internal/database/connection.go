package database

import (
	"fmt"
	"time"

	"github.com/evsite/tankleague/internal/config"
	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true, // ledger operations open their own transactions
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	logger.Info("Database connected")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Manufacturer{},
		&models.Tank{},
		&models.UpgradePath{},
		&models.Team{},
		&models.TeamTank{},
		&models.Booster{},
		&models.Match{},
		&models.TeamMatch{},
		&models.MatchResult{},
		&models.TeamResult{},
		&models.TankLost{},
		&models.Substitute{},
		&models.TeamLog{},
		&models.ImportCriteria{},
		&models.ImportTank{},
		&models.TankBox{},
		&models.TeamBox{},
	)

	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed")
	return nil
}
