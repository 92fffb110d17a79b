package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/utils/pagination"
)

// WalletRepository owns all balance mutations. Balance invariant:
// never negative, and every mutation appends a ledger row in the same
// transaction — there is no code path that changes one without the other.
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new repository bound to the given DB connection.
func NewWalletRepository(database *gorm.DB) *WalletRepository {
	return &WalletRepository{db: database}
}

// GetOrCreate returns the user's wallet, creating a zero-balance row on
// first access. The insert ignores conflicts so concurrent first accesses
// converge on one row.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uint64) (*db.Wallet, error) {
	wallet := db.Wallet{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&wallet).Error
	if err != nil {
		return nil, err
	}
	// Re-read: on conflict the Create leaves the struct without the
	// existing row's id and balance.
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Balance returns the current persisted balance, creating the wallet if
// needed.
func (r *WalletRepository) Balance(ctx context.Context, userID uint64) (int64, error) {
	wallet, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Charge credits the wallet and appends a positive ledger row. No upper
// bound. Returns the new balance.
func (r *WalletRepository) Charge(ctx context.Context, userID uint64, amount int64, description, txType string) (int64, error) {
	var newBalance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		newBalance, err = r.ChargeTx(tx, userID, amount, description, txType)
		return err
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ChargeTx is Charge running inside a caller-owned transaction. The
// referral engine uses it so the bonus credit commits or rolls back with
// the has_purchased flip.
func (r *WalletRepository) ChargeTx(tx *gorm.DB, userID uint64, amount int64, description, txType string) (int64, error) {
	if txType == "" {
		txType = db.TxCharge
	}

	wallet := db.Wallet{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&wallet).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return 0, err
	}

	if err := tx.Model(&db.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return 0, err
	}

	if err := tx.Create(&db.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Status:      "completed",
	}).Error; err != nil {
		return 0, err
	}
	return wallet.Balance + amount, nil
}

// Deduct atomically withdraws amount from the wallet and appends the
// negative ledger row.
//
// Behavior:
//   - The balance check and the decrement are one conditional UPDATE
//     ("balance = balance - ? WHERE ... AND balance >= ?"), so two
//     concurrent deducts can never both succeed on one amount's worth of
//     funds.
//   - Insufficient balance returns (false, nil): a refusal, not an error.
//   - One retry on a transient storage failure, then give up.
//   - On any failure, no partial effect remains (the ledger insert is in
//     the same transaction).
func (r *WalletRepository) Deduct(ctx context.Context, userID uint64, amount int64, description, txType string) (bool, error) {
	if txType == "" {
		txType = db.TxPurchase
	}

	ok, err := r.deductOnce(ctx, userID, amount, description, txType)
	if err != nil && domainErr.Transient(err) {
		time.Sleep(100 * time.Millisecond)
		ok, err = r.deductOnce(ctx, userID, amount, description, txType)
	}
	return ok, err
}

func (r *WalletRepository) deductOnce(ctx context.Context, userID uint64, amount int64, description, txType string) (bool, error) {
	var refused bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet db.Wallet
		if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				refused = true // no wallet, no funds
				return nil
			}
			return err
		}

		res := tx.Model(&db.Wallet{}).
			Where("id = ? AND balance >= ?", wallet.ID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			refused = true
			return nil
		}

		return tx.Create(&db.WalletTransaction{
			WalletID:    wallet.ID,
			Amount:      -amount,
			Type:        txType,
			Description: description,
			Status:      "completed",
		}).Error
	})
	if err != nil {
		return false, err
	}
	return !refused, nil
}

// ListTransactions returns one page of the user's ledger, newest first,
// with an opaque cursor for the next page.
func (r *WalletRepository) ListTransactions(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.WalletTransaction, *string, error) {
	wallet, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", wallet.ID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.TxID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.TxID,
		)
	}

	var txs []db.WalletTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(txs) > limit {
		last := txs[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			TxID:        last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		txs = txs[:limit]
	}

	return txs, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
