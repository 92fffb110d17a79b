package contact_test

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
	"github.com/mortza214/dating-bot-sub000/internal/service/contact"
	"github.com/mortza214/dating-bot-sub000/internal/service/referral"
	"github.com/mortza214/dating-bot-sub000/internal/service/wallet"
)

type fixture struct {
	appCtx    *app.AppContext
	wallets   *wallet.Service
	referrals *referral.Service
	contacts  *contact.Service
}

func setupService(t *testing.T) *fixture {
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
	cfg.Pricing.ContactCost = 50000
	cfg.Pricing.ReferralPct = 10

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	wallets := wallet.NewService(appCtx)
	referrals := referral.NewService(appCtx, wallets)
	return &fixture{
		appCtx:    appCtx,
		wallets:   wallets,
		referrals: referrals,
		contacts:  contact.NewService(appCtx, wallets, referrals),
	}
}

func seedUser(t *testing.T, gdb *gorm.DB, u db.User) *db.User {
	t.Helper()
	if u.State == "" {
		u.State = "main_menu"
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

// Scenario from the purchase flow: A (balance 0) requests B's contact at
// cost 50000 → blocked, nothing written. Top up to 50000, retry, confirm
// → balance 0, one history row, one purchase transaction of -50000.
func TestPurchaseScenario(t *testing.T) {
	ctx := context.Background()
	fx := setupService(t)

	a := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 1, ChatID: 1, IsProfileCompleted: true})
	b := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 2, ChatID: 2, IsProfileCompleted: true})

	// balance 0 → blocked
	out, err := fx.contacts.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.StatusBlocked, out.Status)
	assert.Equal(t, int64(50000), out.Cost)
	assert.Equal(t, int64(0), out.Balance)

	var histCount int64
	require.NoError(t, fx.appCtx.DB.Model(&db.ContactRequest{}).Count(&histCount).Error)
	assert.Equal(t, int64(0), histCount)

	// top up and retry
	require.NoError(t, fx.wallets.Charge(ctx, a.ID, 50000, "top-up", db.TxCharge))

	out, err = fx.contacts.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.StatusPendingConfirmation, out.Status)
	assert.Equal(t, int64(50000), out.Balance)

	out, err = fx.contacts.Confirm(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.StatusRevealedPaid, out.Status)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, b.ID, out.Candidate.ID)

	balance, err := fx.wallets.DisplayBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	var hist []db.ContactRequest
	require.NoError(t, fx.appCtx.DB.Find(&hist).Error)
	require.Len(t, hist, 1)
	assert.Equal(t, a.ID, hist[0].UserID)
	assert.Equal(t, b.ID, hist[0].RequestedUserID)
	assert.Equal(t, int64(50000), hist[0].AmountPaid)

	var purchases []db.WalletTransaction
	require.NoError(t, fx.appCtx.DB.Where("type = ?", db.TxPurchase).Find(&purchases).Error)
	require.Len(t, purchases, 1)
	assert.Equal(t, int64(-50000), purchases[0].Amount)
}

// A second request after a successful purchase must reveal for free —
// never a second deduct.
func TestPurchaseIdempotence(t *testing.T) {
	ctx := context.Background()
	fx := setupService(t)

	a := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 1, ChatID: 1})
	b := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 2, ChatID: 2})

	require.NoError(t, fx.wallets.Charge(ctx, a.ID, 120000, "top-up", ""))

	_, err := fx.contacts.Confirm(ctx, a.ID, b.ID)
	require.NoError(t, err)

	// request and even a replayed confirm are free now
	out, err := fx.contacts.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.StatusRevealedFree, out.Status)

	out, err = fx.contacts.Confirm(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.StatusRevealedFree, out.Status)

	balance, err := fx.wallets.DisplayBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), balance)

	var histCount int64
	require.NoError(t, fx.appCtx.DB.Model(&db.ContactRequest{}).Count(&histCount).Error)
	assert.Equal(t, int64(1), histCount)
}

// Confirm racing a lost balance: the deduct refuses, no history row, no
// reveal, ErrInsufficientFunds surfaces.
func TestConfirmAbortsWhenBalanceRaceLost(t *testing.T) {
	ctx := context.Background()
	fx := setupService(t)

	a := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 1, ChatID: 1})
	b := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 2, ChatID: 2})

	require.NoError(t, fx.wallets.Charge(ctx, a.ID, 10000, "partial top-up", ""))

	_, err := fx.contacts.Confirm(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, domainErr.ErrInsufficientFunds)

	balance, err := fx.wallets.DisplayBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	var histCount int64
	require.NoError(t, fx.appCtx.DB.Model(&db.ContactRequest{}).Count(&histCount).Error)
	assert.Equal(t, int64(0), histCount)
}

// Referral scenario: A referred by R purchases for 50000 → R gains 5000
// exactly once; a second purchase pays nothing more.
func TestReferralBonusPaidOnce(t *testing.T) {
	ctx := context.Background()
	fx := setupService(t)

	r := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 1, ChatID: 1})
	a := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 2, ChatID: 2})
	b := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 3, ChatID: 3})
	c := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 4, ChatID: 4})

	code, err := fx.referrals.InviteCode(ctx, r.ID)
	require.NoError(t, err)
	require.NoError(t, fx.referrals.Attach(ctx, a.ID, code))

	require.NoError(t, fx.wallets.Charge(ctx, a.ID, 200000, "top-up", ""))

	_, err = fx.contacts.Confirm(ctx, a.ID, b.ID)
	require.NoError(t, err)

	refBalance, err := fx.wallets.DisplayBalance(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), refBalance)

	// second purchase: no further bonus
	_, err = fx.contacts.Confirm(ctx, a.ID, c.ID)
	require.NoError(t, err)

	refBalance, err = fx.wallets.DisplayBalance(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), refBalance)

	var bonuses []db.WalletTransaction
	require.NoError(t, fx.appCtx.DB.Where("type = ?", db.TxReferralBonus).Find(&bonuses).Error)
	require.Len(t, bonuses, 1)
	assert.Equal(t, int64(5000), bonuses[0].Amount)
}

func TestMarkContactRequestedFlag(t *testing.T) {
	ctx := context.Background()
	fx := setupService(t)

	a := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 1, ChatID: 1})
	b := seedUser(t, fx.appCtx.DB, db.User{TelegramID: 2, ChatID: 2})

	// candidate was previously suggested to a
	require.NoError(t, fx.appCtx.DB.Create(&db.UserSuggestion{
		UserID: a.ID, SuggestedUserID: b.ID, ShownCount: 1, LastShownAt: time.Now().UTC(),
	}).Error)

	require.NoError(t, fx.wallets.Charge(ctx, a.ID, 50000, "top-up", ""))
	_, err := fx.contacts.Confirm(ctx, a.ID, b.ID)
	require.NoError(t, err)

	var sug db.UserSuggestion
	require.NoError(t, fx.appCtx.DB.
		Where("user_id = ? AND suggested_user_id = ?", a.ID, b.ID).
		First(&sug).Error)
	assert.True(t, sug.ContactRequested)
}
