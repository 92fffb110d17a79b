package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortza214/dating-bot-sub000/internal/db"
)

// ReferralRepository owns referral rows and the one-shot bonus claim.
type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(database *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: database}
}

// Attach records that referredID joined through referrerID's invite code
// and reports whether a new row was created. A user can only be referred
// once: a second attach is silently ignored, as is self-referral — both
// return (false, nil) so callers can tell "linked now" from "no-op".
func (r *ReferralRepository) Attach(ctx context.Context, referrerID, referredID uint64, inviteCode string) (bool, error) {
	if referrerID == referredID {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "referred_id"}},
			DoNothing: true,
		}).
		Create(&db.Referral{
			ReferrerID: referrerID,
			ReferredID: referredID,
			InviteCode: inviteCode,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByReferred returns the referral row for a referred user, or
// gorm.ErrRecordNotFound when the user was not referred.
func (r *ReferralRepository) GetByReferred(ctx context.Context, referredID uint64) (*db.Referral, error) {
	var row db.Referral
	err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ClaimFirstPurchase flips has_purchased for the referred user and runs
// onClaim inside the same transaction.
//
// Behavior:
//   - The flip is a conditional UPDATE on has_purchased = false, so under
//     concurrent qualifying purchases exactly one caller claims it.
//   - Returns (false, nil) when the user was not referred or the bonus
//     was already paid — not an error.
//   - If onClaim fails the flip rolls back, so a later purchase can
//     retry the bonus.
func (r *ReferralRepository) ClaimFirstPurchase(
	ctx context.Context,
	referredID uint64,
	bonusAmount int64,
	onClaim func(tx *gorm.DB, ref *db.Referral) error,
) (bool, error) {
	var claimed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&db.Referral{}).
			Where("referred_id = ? AND has_purchased = ?", referredID, false).
			Updates(map[string]any{
				"has_purchased": true,
				"bonus_amount":  bonusAmount,
				"bonus_paid_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // not referred, or already claimed
		}

		var ref db.Referral
		if err := tx.Where("referred_id = ?", referredID).First(&ref).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := onClaim(tx, &ref); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}
