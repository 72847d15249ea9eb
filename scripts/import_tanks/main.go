package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

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
		log.Fatal("usage: import_tanks <xlsx file>")
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
			if i == 0 || len(row) < 5 { // Skip header or invalid rows
				continue
			}

			// row[0]: Tank Name
			// row[1]: Actual BR
			// row[2]: Cost
			// row[3]: Rank
			// row[4]: Type

			name := security.SanitizeName(row[0])
			if name == "" {
				continue
			}
			br, err := strconv.ParseFloat(row[1], 64)
			if err != nil {
				fmt.Printf("Invalid battle rating in row %d: %v\n", i, err)
				continue
			}
			price, err := strconv.ParseInt(row[2], 10, 64)
			if err != nil {
				fmt.Printf("Invalid price in row %d: %v\n", i, err)
				continue
			}
			rank, err := strconv.Atoi(row[3])
			if err != nil {
				fmt.Printf("Invalid rank in row %d: %v\n", i, err)
				continue
			}

			var tank models.Tank
			res := db.Where("name = ?", name).First(&tank)
			if res.Error == gorm.ErrRecordNotFound {
				tank = models.Tank{Name: name}
			} else if res.Error != nil {
				fmt.Printf("Error looking up tank in row %d: %v\n", i, res.Error)
				continue
			}

			tank.BattleRating = br
			tank.Price = price
			tank.Rank = rank
			tank.Type = security.SanitizeString(row[4])

			if err := db.Save(&tank).Error; err != nil {
				fmt.Printf("Error saving tank in row %d: %v\n", i, err)
			} else {
				totalImported++
			}
		}
	}

	fmt.Printf("Successfully imported %d tanks.\n", totalImported)
}
