package repository_test

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mortza214/dating-bot-sub000/internal/db"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// named shared-cache DB: every pooled connection sees the same
	// in-memory database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

// seedUser inserts one user row and returns its id.
func seedUser(t *testing.T, gdb *gorm.DB, u db.User) uint64 {
	t.Helper()
	if u.State == "" {
		u.State = "main_menu"
	}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u.ID
}
