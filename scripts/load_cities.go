package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"roommate-server/models"
	"roommate-server/storage"
)

type cityEntry struct {
	Name  string `json:"name"`
	Order uint   `json:"order"`
}

// Seeds the city and tag reference tables. Pass a JSON file of
// {"name": ..., "order": ...} entries; without one a default set is loaded.
func main() {
	db := storage.InitializeDB()

	cities := []cityEntry{
		{Name: "Москва", Order: 1},
		{Name: "Санкт-Петербург", Order: 2},
		{Name: "Новосибирск", Order: 3},
		{Name: "Екатеринбург", Order: 4},
		{Name: "Казань", Order: 5},
	}

	if len(os.Args) > 1 {
		raw, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("Error reading cities file: %v", err)
		}
		if err := json.Unmarshal(raw, &cities); err != nil {
			log.Fatalf("Error parsing cities file: %v", err)
		}
	}

	for _, entry := range cities {
		city := models.City{Name: entry.Name, Order: entry.Order}
		err := db.Where("name = ?", entry.Name).FirstOrCreate(&city).Error
		if err != nil {
			log.Fatalf("Error seeding city %q: %v", entry.Name, err)
		}
	}

	tags := []models.CardTag{
		{Name: "Некурящие", Code: "non_smokers", Order: 1},
		{Name: "Без животных", Code: "no_pets", Order: 2},
		{Name: "С животными", Code: "pets_friendly", Order: 3},
		{Name: "Студенты", Code: "students", Order: 4},
		{Name: "Тишина после 22:00", Code: "quiet_hours", Order: 5},
	}
	for _, entry := range tags {
		tag := models.CardTag{Name: entry.Name, Code: entry.Code, Order: entry.Order}
		err := db.Where("code = ?", entry.Code).FirstOrCreate(&tag).Error
		if err != nil {
			log.Fatalf("Error seeding tag %q: %v", entry.Code, err)
		}
	}

	fmt.Println("Reference data loaded successfully!")
}
