package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
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
		log.Fatal("usage: import_teams <xlsx file>")
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
			if i == 0 || len(row) < 3 { // Skip header or invalid rows
				continue
			}

			// row[0]: Name
			// row[1]: Color
			// row[2]: Manufacturers (comma separated)
			// row[3]: Balance (optional)

			name := security.SanitizeName(row[0])
			if name == "" {
				continue
			}

			var team models.Team
			res := db.Where("name = ?", name).First(&team)
			if res.Error == gorm.ErrRecordNotFound {
				team = models.Team{Name: name, Color: security.SanitizeString(row[1])}
			} else if res.Error != nil {
				fmt.Printf("Error looking up team in row %d: %v\n", i, res.Error)
				continue
			}

			if len(row) > 3 && row[3] != "" {
				balance, err := strconv.ParseInt(row[3], 10, 64)
				if err != nil {
					fmt.Printf("Invalid balance in row %d: %v\n", i, err)
					continue
				}
				team.Balance = balance
			}

			if err := db.Save(&team).Error; err != nil {
				fmt.Printf("Error saving team in row %d: %v\n", i, err)
				continue
			}

			for _, manuName := range strings.Split(row[2], ",") {
				manuName = security.SanitizeName(manuName)
				if manuName == "" {
					continue
				}
				var manu models.Manufacturer
				if err := db.Where("name = ?", manuName).First(&manu).Error; err != nil {
					fmt.Printf("Manufacturer '%s' not found for team '%s'\n", manuName, team.Name)
					continue
				}
				if err := db.Model(&team).Association("Manufacturers").Append(&manu); err != nil {
					fmt.Printf("Error linking manufacturer '%s' to team '%s': %v\n", manuName, team.Name, err)
				}
			}
			totalImported++
		}
	}

	fmt.Printf("Successfully imported %d teams.\n", totalImported)
}
