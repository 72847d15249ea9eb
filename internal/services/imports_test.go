package services

import (
	"testing"
	"time"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newImportTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	// a single connection keeps the in-memory database alive
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Manufacturer{},
		&models.Tank{},
		&models.Team{},
		&models.ImportCriteria{},
		&models.ImportTank{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func newImportTestService(db *gorm.DB, batchSize int) *ImportService {
	return NewImportService(db,
		repositories.NewTeamRepository(db),
		repositories.NewTankRepository(db),
		repositories.NewImportRepository(db),
		nil,
		batchSize)
}

func TestGetActiveCriteriaNoneActive(t *testing.T) {
	db := newImportTestDB(t)
	repo := repositories.NewImportRepository(db)

	criteria, err := repo.GetActiveCriteria()
	if err != nil {
		t.Fatalf("unexpected error with no active criteria: %v", err)
	}
	if criteria != nil {
		t.Fatalf("expected nil criteria, got %+v", criteria)
	}

	if err := db.Create(&models.ImportCriteria{Name: "weekly", MinRank: 1, MaxRank: 5, IsActive: true}).Error; err != nil {
		t.Fatalf("seed criteria: %v", err)
	}
	criteria, err = repo.GetActiveCriteria()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if criteria == nil || criteria.Name != "weekly" {
		t.Fatalf("expected the active criteria, got %+v", criteria)
	}
}

func TestGenerateWeeklyImportsSkipsWithoutCriteria(t *testing.T) {
	db := newImportTestDB(t)
	svc := newImportTestService(db, 10)

	if err := svc.GenerateWeeklyImports(time.Now().UTC()); err != nil {
		t.Fatalf("expected a graceful skip, got %v", err)
	}

	var count int64
	if err := db.Model(&models.ImportTank{}).Count(&count).Error; err != nil {
		t.Fatalf("count offers: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no offers, found %d", count)
	}
}

func TestGenerateWeeklyImportsBatch(t *testing.T) {
	db := newImportTestDB(t)
	tanks := []models.Tank{
		{Name: "Panther", BattleRating: 5.7, Price: 80000, Rank: 3, Type: "MT"},
		{Name: "Tiger II", BattleRating: 6.3, Price: 120000, Rank: 4, Type: "HT"},
		{Name: "M4A1", BattleRating: 3.7, Price: 30000, Rank: 2, Type: "MT"},
		{Name: "T-34-85", BattleRating: 5.3, Price: 60000, Rank: 3, Type: "MT"},
	}
	for i := range tanks {
		if err := db.Create(&tanks[i]).Error; err != nil {
			t.Fatalf("seed tank: %v", err)
		}
	}
	if err := db.Create(&models.ImportCriteria{
		Name:     "weekly",
		MinRank:  1,
		MaxRank:  5,
		Discount: 10,
		IsActive: true,
	}).Error; err != nil {
		t.Fatalf("seed criteria: %v", err)
	}

	svc := newImportTestService(db, 3)
	now := time.Date(2026, time.September, 4, 12, 0, 0, 0, time.UTC)

	if err := svc.GenerateWeeklyImports(now); err != nil {
		t.Fatalf("generate batch: %v", err)
	}

	var offers []models.ImportTank
	if err := db.Find(&offers).Error; err != nil {
		t.Fatalf("list offers: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}
	wantStart := importWindowStart(now)
	for _, o := range offers {
		if !o.AvailableFrom.Equal(wantStart) {
			t.Errorf("offer window start = %v, want %v", o.AvailableFrom, wantStart)
		}
		if o.Discount != 10 {
			t.Errorf("offer discount = %d, want 10", o.Discount)
		}
	}

	// a second run inside the same window must not add offers
	if err := svc.GenerateWeeklyImports(now.Add(24 * time.Hour)); err != nil {
		t.Fatalf("repeat generate: %v", err)
	}
	var count int64
	if err := db.Model(&models.ImportTank{}).Count(&count).Error; err != nil {
		t.Fatalf("count offers: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected batch generation to be idempotent, got %d offers", count)
	}
}
