package match_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/cache"
	"github.com/mortza214/dating-bot-sub000/internal/config"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/match"
)

// setupService spins up an in-memory SQLite DB, applies migrations,
// starts a miniredis, and wires everything into a match Service.
//
// Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*match.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(db.Models()...))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Pricing.SuggestionPool = 50

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return match.NewService(appCtx), appCtx
}

func seedUser(t *testing.T, gdb *gorm.DB, u db.User) *db.User {
	t.Helper()
	if u.State == "" {
		u.State = "main_menu"
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

// A user with active filters and zero matching candidates must get
// "none", never a candidate from the default logic.
func TestFilterHardGate(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	requester := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1, Gender: "مرد", Age: 30, IsProfileCompleted: true})
	// A completed woman exists, but in the wrong city.
	seedUser(t, appCtx.DB, db.User{TelegramID: 2, ChatID: 2, Gender: "زن", City: "شیراز", Age: 25, IsProfileCompleted: true})

	filters := repository.NewFilterRepository(appCtx.DB)
	require.NoError(t, filters.Save(ctx, requester.ID, repository.Filters{
		Gender: "زن",
		City:   []string{"تهران"},
	}))

	_, err := svc.FindSuggestion(ctx, requester)
	assert.ErrorIs(t, err, domainErr.ErrNoCandidate)

	// no exposure recorded on a "none" result
	var count int64
	require.NoError(t, appCtx.DB.Model(&db.UserSuggestion{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestFilteredMatchAcrossEncodings(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	requester := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1, Gender: "مرد", Age: 30, IsProfileCompleted: true})
	// stored with the legacy letter encoding; the filter uses the label
	want := seedUser(t, appCtx.DB, db.User{TelegramID: 2, ChatID: 2, Gender: "f", City: "تهران", Age: 27, IsProfileCompleted: true})

	filters := repository.NewFilterRepository(appCtx.DB)
	require.NoError(t, filters.Save(ctx, requester.ID, repository.Filters{
		Gender: "زن",
		City:   []string{"تهران"},
		MinAge: "۲۰", // persian digits must parse
		MaxAge: "35",
	}))

	got, err := svc.FindSuggestion(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
}

func TestDefaultOppositeGenderLogic(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	requester := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1, Gender: "مرد", Age: 30, IsProfileCompleted: true})
	woman := seedUser(t, appCtx.DB, db.User{TelegramID: 2, ChatID: 2, Gender: "زن", Age: 28, IsProfileCompleted: true})
	// same gender never suggested under default logic
	seedUser(t, appCtx.DB, db.User{TelegramID: 3, ChatID: 3, Gender: "male", Age: 29, IsProfileCompleted: true})

	got, err := svc.FindSuggestion(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, woman.ID, got.ID)
}

func TestDefaultLogicWithoutRequesterGender(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	requester := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1, Age: 30, IsProfileCompleted: true})
	seedUser(t, appCtx.DB, db.User{TelegramID: 2, ChatID: 2, Gender: "زن", Age: 28, IsProfileCompleted: true})
	seedUser(t, appCtx.DB, db.User{TelegramID: 3, ChatID: 3, Gender: "مرد", Age: 29, IsProfileCompleted: true})

	// any completed profile is eligible; drain both
	seen := map[uint64]bool{}
	for i := 0; i < 2; i++ {
		got, err := svc.FindSuggestion(ctx, requester)
		require.NoError(t, err)
		seen[got.ID] = true
	}
	assert.Len(t, seen, 2)

	_, err := svc.FindSuggestion(ctx, requester)
	assert.ErrorIs(t, err, domainErr.ErrNoCandidate)
}

// Exposed candidates are permanently excluded, and the requester never
// sees themself.
func TestExposureExclusion(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	requester := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1, Gender: "مرد", Age: 30, IsProfileCompleted: true})
	candidate := seedUser(t, appCtx.DB, db.User{TelegramID: 2, ChatID: 2, Gender: "زن", Age: 28, IsProfileCompleted: true})

	got, err := svc.FindSuggestion(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, candidate.ID, got.ID)

	// exposure row written
	var sug db.UserSuggestion
	require.NoError(t, appCtx.DB.First(&sug).Error)
	assert.Equal(t, requester.ID, sug.UserID)
	assert.Equal(t, candidate.ID, sug.SuggestedUserID)
	assert.Equal(t, 1, sug.ShownCount)

	// pool exhausted now
	_, err = svc.FindSuggestion(ctx, requester)
	assert.ErrorIs(t, err, domainErr.ErrNoCandidate)
}
