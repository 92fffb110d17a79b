package wallet

import (
	"context"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
)

// Service is the wallet ledger facade used by the rest of the bot.
// Mutations go straight to the repository's atomic paths; the Redis
// balance cache exists only for display reads.
type Service struct {
	appCtx *app.AppContext
	wallet *repository.WalletRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		wallet: repository.NewWalletRepository(appCtx.DB),
	}
}

// Repo exposes the underlying repository for services that need
// transaction-scoped access (referral bonus payout).
func (s *Service) Repo() *repository.WalletRepository { return s.wallet }

// DisplayBalance returns the balance for rendering. Cache-first strategy:
//  1. Attempts to read from Redis (wallet:balance:userID).
//  2. On miss, falls back to the database and refills the cache.
//
// Never use this value to authorize a debit — Deduct re-verifies against
// the freshest persisted read.
func (s *Service) DisplayBalance(ctx context.Context, userID uint64) (int64, error) {
	if cached, ok, err := s.appCtx.RedisCache.GetBalance(ctx, userID); err == nil && ok {
		return cached, nil
	}

	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.UpdateBalance(ctx, userID, balance)
	return balance, nil
}

// HasEnough is a display-gating convenience over DisplayBalance.
func (s *Service) HasEnough(ctx context.Context, userID uint64, amount int64) (bool, error) {
	balance, err := s.DisplayBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Charge credits the wallet (admin top-up approval, referral bonus) and
// refreshes the cached balance.
func (s *Service) Charge(ctx context.Context, userID uint64, amount int64, description, txType string) error {
	newBalance, err := s.wallet.Charge(ctx, userID, amount, description, txType)
	if err != nil {
		return err
	}
	s.appCtx.Logger.Info("wallet charged", "user_id", userID, "amount", amount, "type", txType)
	_ = s.appCtx.RedisCache.UpdateBalance(ctx, userID, newBalance)
	return nil
}

// Deduct debits the wallet atomically. Returns false when funds are
// insufficient; the cache is invalidated either way so the next display
// read is fresh.
func (s *Service) Deduct(ctx context.Context, userID uint64, amount int64, description, txType string) (bool, error) {
	ok, err := s.wallet.Deduct(ctx, userID, amount, description, txType)
	_ = s.appCtx.RedisCache.InvalidateBalance(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("deduct failed", "user_id", userID, "amount", amount, "err", err)
		return false, err
	}
	if !ok {
		s.appCtx.Logger.Debug("deduct refused, insufficient funds", "user_id", userID, "amount", amount)
	}
	return ok, nil
}

// History returns one page of ledger rows for the "my transactions" view.
func (s *Service) History(ctx context.Context, userID uint64, token *string, limit int) ([]db.WalletTransaction, *string, error) {
	return s.wallet.ListTransactions(ctx, userID, token, limit)
}
