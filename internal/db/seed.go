package db

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo users.
//
// Behavior:
//  1. Clears users, wallets, transactions, filters, field values and
//     suggestion history.
//  2. Registers the default profile fields.
//  3. Creates 20 completed profiles (10 male, 10 female) spread over a
//     few cities, deliberately mixing the historical gender encodings
//     ("male", "مرد", "m", "1", ...) so matching against legacy rows is
//     exercised.
//  4. Gives every user a wallet; a few start with a balance.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped
// for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	tables := []string{
		"wallet_transactions", "wallets", "user_suggestions",
		"contact_requests", "referrals", "payment_requests",
		"user_profile_values", "user_filters", "profile_fields", "users",
	}
	for _, t := range tables {
		if err := db.Exec("DELETE FROM " + t).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, t := range tables {
			db.Exec(fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = 1", t))
		}
	case "sqlite":
		for _, t := range tables {
			db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", t)
		}
	}

	log.Println("Cleared existing data")

	// --- Default profile fields ---
	if err := SeedDefaultFields(db); err != nil {
		return err
	}

	// Legacy rows store gender in whatever encoding was current at the
	// time; the seed reproduces that spread on purpose.
	maleForms := []string{"male", "مرد", "m", "1"}
	femaleForms := []string{"female", "زن", "f", "2"}
	cities := []string{"تهران", "مشهد", "اصفهان", "شیراز"}

	names := []string{
		"علی", "رضا", "حسین", "محمد", "امیر", "مهدی", "سعید", "حامد", "پویا", "آرش",
		"زهرا", "مریم", "فاطمه", "سارا", "نرگس", "الهام", "نازنین", "مینا", "شیما", "پریسا",
	}

	// --- Seed Users (10 male, 10 female) ---
	for i := 1; i <= 20; i++ {
		forms := maleForms
		if i > 10 {
			forms = femaleForms
		}

		user := User{
			TelegramID:         int64(100000 + i),
			ChatID:             int64(100000 + i),
			FirstName:          names[i-1],
			Username:           fmt.Sprintf("demo_user_%d", i),
			State:              "main_menu",
			Gender:             forms[i%len(forms)],
			City:               cities[r.Intn(len(cities))],
			Age:                20 + r.Intn(20),
			IsProfileCompleted: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		bio := fmt.Sprintf("سلام، من %s هستم از %s.", user.FirstName, user.City)
		values := []UserProfileValue{
			{UserID: user.ID, FieldName: "gender", Value: user.Gender},
			{UserID: user.ID, FieldName: "city", Value: user.City},
			{UserID: user.ID, FieldName: "age", Value: fmt.Sprintf("%d", user.Age)},
			{UserID: user.ID, FieldName: "bio", Value: bio},
		}
		if err := db.Create(&values).Error; err != nil {
			return fmt.Errorf("failed to seed profile values: %w", err)
		}

		// every 4th user starts with enough for one contact purchase
		wallet := Wallet{UserID: user.ID}
		if i%4 == 0 {
			wallet.Balance = 50000
		}
		if err := db.Create(&wallet).Error; err != nil {
			return fmt.Errorf("failed to seed wallet: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	return nil
}

// SeedDefaultFields registers the built-in profile fields if they are
// missing. Safe to call on every startup.
func SeedDefaultFields(db *gorm.DB) error {
	genderOpts, _ := json.Marshal([]string{"مرد", "زن"})

	fields := []ProfileField{
		{FieldName: "gender", FieldLabel: "جنسیت", FieldType: FieldSelect, IsRequired: true, SortOrder: 1, Options: genderOpts},
		{FieldName: "age", FieldLabel: "سن", FieldType: FieldNumber, IsRequired: true, SortOrder: 2},
		{FieldName: "city", FieldLabel: "شهر", FieldType: FieldText, IsRequired: true, SortOrder: 3},
		{FieldName: "bio", FieldLabel: "درباره من", FieldType: FieldTextarea, SortOrder: 4},
	}
	for i := range fields {
		fields[i].IsActive = true
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "field_name"}},
		DoNothing: true,
	}).Create(&fields).Error
	if err != nil {
		return fmt.Errorf("failed to seed profile fields: %w", err)
	}
	return nil
}
