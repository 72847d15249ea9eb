package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/security"
	"github.com/joho/godotenv"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if len(os.Args) < 2 {
		log.Fatal("usage: import_upgrades <xlsx file>")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"), os.Getenv("DB_PORT"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}

	f, err := excelize.OpenFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	totalImported := 0
	for _, sheetName := range f.GetSheetList() {
		fmt.Printf("Importing sheet: %s\n", sheetName)
		rows, err := f.GetRows(sheetName)
		if err != nil {
			fmt.Printf("Error reading sheet %s: %v\n", sheetName, err)
			continue
		}

		for i, row := range rows {
			if i == 0 || len(row) < 4 { // Skip header or invalid rows
				continue
			}

			// row[0]: From Tank
			// row[1]: To Tank
			// row[2]: Kit ("P" means no kit required)
			// row[3]: In_graph

			var fromTank, toTank models.Tank
			if err := db.Where("name = ?", security.SanitizeName(row[0])).First(&fromTank).Error; err != nil {
				fmt.Printf("Tank %s does not exist\n", row[0])
				continue
			}
			if err := db.Where("name = ?", security.SanitizeName(row[1])).First(&toTank).Error; err != nil {
				fmt.Printf("Tank %s does not exist\n", row[1])
				continue
			}

			kit := strings.TrimSpace(row[2])
			if kit == "P" {
				kit = ""
			}
			inGraph := strings.EqualFold(strings.TrimSpace(row[3]), "true")

			var path models.UpgradePath
			res := db.Where("from_tank_id = ? AND to_tank_id = ? AND in_graph = ?",
				fromTank.ID, toTank.ID, inGraph).First(&path)
			if res.Error == gorm.ErrRecordNotFound {
				path = models.UpgradePath{
					FromTankID: fromTank.ID,
					ToTankID:   toTank.ID,
					InGraph:    inGraph,
				}
			} else if res.Error != nil {
				fmt.Printf("Error looking up path in row %d: %v\n", i, res.Error)
				continue
			}

			path.FromTank = fromTank
			path.ToTank = toTank
			path.RequiredKitTier = kit
			path.RecalculateCost()

			if err := db.Save(&path).Error; err != nil {
				fmt.Printf("Error saving path in row %d: %v\n", i, err)
			} else {
				totalImported++
			}
		}
	}

	fmt.Printf("Successfully imported %d upgrade paths.\n", totalImported)
}
