package profile_test

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
	"github.com/mortza214/dating-bot-sub000/internal/service/profile"
	"github.com/mortza214/dating-bot-sub000/internal/state"
)

func setupService(t *testing.T) (*profile.Service, *app.AppContext) {
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

	appCtx := app.New(dbase, cache.NewRedisCache(cfg),
		slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	return profile.NewService(appCtx), appCtx
}

// seedFields registers the standard demo wizard: gender (select,
// required), age (number, required), city (text, required), bio
// (textarea, optional).
func seedFields(t *testing.T, appCtx *app.AppContext) {
	t.Helper()
	fields := repository.NewFieldRepository(appCtx.DB)
	ctx := context.Background()

	require.NoError(t, fields.Create(ctx, db.ProfileField{
		FieldName: "gender", FieldLabel: "جنسیت", FieldType: db.FieldSelect,
		IsRequired: true, IsActive: true, SortOrder: 1,
		Options: repository.EncodeOptions([]string{"زن", "مرد"}),
	}))
	require.NoError(t, fields.Create(ctx, db.ProfileField{
		FieldName: "age", FieldLabel: "سن", FieldType: db.FieldNumber,
		IsRequired: true, IsActive: true, SortOrder: 2,
	}))
	require.NoError(t, fields.Create(ctx, db.ProfileField{
		FieldName: "city", FieldLabel: "شهر", FieldType: db.FieldText,
		IsRequired: true, IsActive: true, SortOrder: 3,
	}))
	require.NoError(t, fields.Create(ctx, db.ProfileField{
		FieldName: "bio", FieldLabel: "درباره من", FieldType: db.FieldTextarea,
		IsActive: true, SortOrder: 4,
	}))
}

func seedUser(t *testing.T, gdb *gorm.DB, u db.User) *db.User {
	t.Helper()
	if u.State == "" {
		u.State = "main_menu"
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

func TestWizardWalkToCompletion(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedFields(t, appCtx)
	user := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1})

	step, err := svc.Begin(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "gender", step.Field.FieldName)
	assert.Equal(t, state.EditingField("gender"), state.Parse(user.State))

	// select by 1-based index
	step, err = svc.Input(ctx, user, "1")
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "age", step.Field.FieldName)

	// persian digits accepted for number fields
	step, err = svc.Input(ctx, user, "۲۷")
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "city", step.Field.FieldName)

	step, err = svc.Input(ctx, user, "تهران")
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "bio", step.Field.FieldName)

	// last field: wizard finishes
	step, err = svc.Input(ctx, user, "سلام")
	require.NoError(t, err)
	assert.Nil(t, step)

	var fresh db.User
	require.NoError(t, appCtx.DB.First(&fresh, user.ID).Error)
	assert.True(t, fresh.IsProfileCompleted)
	assert.Equal(t, state.MainMenu, state.Parse(fresh.State))
	// matching dimensions mirrored onto the user row
	assert.Equal(t, "زن", fresh.Gender)
	assert.Equal(t, 27, fresh.Age)
	assert.Equal(t, "تهران", fresh.City)
}

func TestValidationRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedFields(t, appCtx)
	user := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1})

	step, err := svc.Begin(ctx, user)
	require.NoError(t, err)

	// out-of-range select index
	step, err = svc.Input(ctx, user, "9")
	assert.ErrorIs(t, err, domainErr.ErrInvalidInput)
	assert.Equal(t, "gender", step.Field.FieldName) // stay on the field

	step, err = svc.Input(ctx, user, "مرد") // option text also accepted
	require.NoError(t, err)
	assert.Equal(t, "age", step.Field.FieldName)

	// non-numeric age
	step, err = svc.Input(ctx, user, "جوان")
	assert.ErrorIs(t, err, domainErr.ErrInvalidInput)
	assert.Equal(t, "age", step.Field.FieldName)
}

func TestSkipOnlyOnOptionalFields(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedFields(t, appCtx)
	user := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1})

	step, err := svc.Begin(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "gender", step.Field.FieldName)

	// gender is required
	step, err = svc.Skip(ctx, user)
	assert.ErrorIs(t, err, domainErr.ErrSkipRequired)

	_, err = svc.Input(ctx, user, "زن")
	require.NoError(t, err)
	_, err = svc.Input(ctx, user, "25")
	require.NoError(t, err)
	_, err = svc.Input(ctx, user, "مشهد")
	require.NoError(t, err)

	// bio is optional: skipping it finishes the wizard
	step, err = svc.Skip(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, step)

	var fresh db.User
	require.NoError(t, appCtx.DB.First(&fresh, user.ID).Error)
	assert.True(t, fresh.IsProfileCompleted)
}

func TestPrevStepsBack(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedFields(t, appCtx)
	user := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1})

	_, err := svc.Begin(ctx, user)
	require.NoError(t, err)
	_, err = svc.Input(ctx, user, "زن")
	require.NoError(t, err)

	step, err := svc.Prev(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "gender", step.Field.FieldName)

	// at the first field Prev stays put
	step, err = svc.Prev(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "gender", step.Field.FieldName)
}

// A field deactivated mid-edit must not strand the user: the pipeline
// recomputes the active list and re-anchors.
func TestStaleStateReanchors(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedFields(t, appCtx)
	fieldsRepo := repository.NewFieldRepository(appCtx.DB)

	user := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1})
	_, err := svc.Begin(ctx, user)
	require.NoError(t, err)
	_, err = svc.Input(ctx, user, "زن")
	require.NoError(t, err)
	assert.Equal(t, state.EditingField("age"), state.Parse(user.State))

	// admin deactivates the field the user is sitting on
	require.NoError(t, fieldsRepo.SetFlags(ctx, "age", map[string]any{"is_active": false}))

	step, err := svc.Current(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "gender", step.Field.FieldName)
	assert.Equal(t, state.EditingField("gender"), state.Parse(user.State))
}

// Completion only counts required active fields; deactivated ones drop
// out of the requirement set.
func TestIsCompleteTracksActiveRequiredFields(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedFields(t, appCtx)
	fieldsRepo := repository.NewFieldRepository(appCtx.DB)

	user := seedUser(t, appCtx.DB, db.User{TelegramID: 1, ChatID: 1})
	_, err := svc.Begin(ctx, user)
	require.NoError(t, err)
	_, err = svc.Input(ctx, user, "زن")
	require.NoError(t, err)
	_, err = svc.Input(ctx, user, "25")
	require.NoError(t, err)

	// city still missing
	complete, err := svc.IsComplete(ctx, user)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, fieldsRepo.SetFlags(ctx, "city", map[string]any{"is_active": false}))

	complete, err = svc.IsComplete(ctx, user)
	require.NoError(t, err)
	assert.True(t, complete)
}
