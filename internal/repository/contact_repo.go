package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mortza214/dating-bot-sub000/internal/db"
)

// ContactRepository owns the append-only contact purchase history.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(database *gorm.DB) *ContactRepository {
	return &ContactRepository{db: database}
}

// Exists reports whether the pair's contact was already purchased. A true
// result entitles the user to free re-views.
func (r *ContactRepository) Exists(ctx context.Context, userID, requestedUserID uint64) (bool, error) {
	var row db.ContactRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND requested_user_id = ?", userID, requestedUserID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Append records a completed purchase. The unique pair index rejects a
// duplicate append, which callers treat as "already purchased".
func (r *ContactRepository) Append(ctx context.Context, userID, requestedUserID uint64, amountPaid int64) error {
	return r.db.WithContext(ctx).Create(&db.ContactRequest{
		UserID:          userID,
		RequestedUserID: requestedUserID,
		AmountPaid:      amountPaid,
	}).Error
}
