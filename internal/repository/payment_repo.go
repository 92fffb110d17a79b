package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mortza214/dating-bot-sub000/internal/db"
)

// PaymentRepository owns the manual top-up workflow rows.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(database *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: database}
}

// Create opens a pending top-up request.
func (r *PaymentRepository) Create(ctx context.Context, userID uint64, amount int64) (*db.PaymentRequest, error) {
	req := db.PaymentRequest{
		UserID: userID,
		Amount: amount,
		Status: db.PaymentPending,
	}
	if err := r.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Pending lists requests awaiting admin review, oldest first.
func (r *PaymentRepository) Pending(ctx context.Context) ([]db.PaymentRequest, error) {
	var reqs []db.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", db.PaymentPending).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// Resolve transitions a pending request to approved or rejected. The
// conditional status check means double-tapping an admin button resolves
// the request only once.
func (r *PaymentRepository) Resolve(ctx context.Context, requestID uint64, status string, reviewedBy int64) (*db.PaymentRequest, bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&db.PaymentRequest{}).
		Where("id = ? AND status = ?", requestID, db.PaymentPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewedBy,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}

	var req db.PaymentRequest
	if err := r.db.WithContext(ctx).First(&req, requestID).Error; err != nil {
		return nil, false, err
	}
	return &req, res.RowsAffected > 0, nil
}
