package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mortza214/dating-bot-sub000/internal/config"
)

// Models lists every table in migration order. Shared between NewDB and
// test setups.
func Models() []any {
	return []any{
		&User{},
		&Wallet{},
		&WalletTransaction{},
		&UserFilter{},
		&ProfileField{},
		&UserProfileValue{},
		&UserSuggestion{},
		&ContactRequest{},
		&Referral{},
		&PaymentRequest{},
		&BotState{},
	}
}

// NewDB initializes the database connection using DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// AutoMigrate ensures schema is in sync with models.
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// RandomOrder returns the dialect-specific random ordering expression.
// MySQL uses RAND(), SQLite (tests) uses RANDOM().
func RandomOrder(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}
