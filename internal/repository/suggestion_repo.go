package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortza214/dating-bot-sub000/internal/db"
)

// SuggestionRepository is the exposure tracker: one row per
// (user, candidate) pair, incremented on repeat shows.
type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(database *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: database}
}

// RecordExposure marks that candidateID was shown to userID.
//
// Behavior:
//   - First show inserts a row with shown_count = 1.
//   - Repeat shows increment shown_count and refresh last_shown_at.
//   - The composite PK plus OnConflict makes concurrent calls for the
//     same pair converge on a single row.
func (r *SuggestionRepository) RecordExposure(ctx context.Context, userID, candidateID uint64) error {
	row := db.UserSuggestion{
		UserID:          userID,
		SuggestedUserID: candidateID,
		ShownCount:      1,
		LastShownAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "suggested_user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"shown_count":   gorm.Expr("shown_count + 1"),
				"last_shown_at": row.LastShownAt,
			}),
		}).
		Create(&row).Error
}

// ShownIDs returns every candidate id already exposed to the user. The
// result is used verbatim as the matcher's exclusion set: once shown,
// always excluded (no re-surfacing).
func (r *SuggestionRepository) ShownIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.UserSuggestion{}).
		Where("user_id = ? AND shown_count >= 1", userID).
		Pluck("suggested_user_id", &ids).Error
	return ids, err
}

// MarkContactRequested flags the pair after a successful contact
// purchase.
func (r *SuggestionRepository) MarkContactRequested(ctx context.Context, userID, candidateID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.UserSuggestion{}).
		Where("user_id = ? AND suggested_user_id = ?", userID, candidateID).
		Update("contact_requested", true).Error
}

// Get returns the exposure row for a pair, or gorm.ErrRecordNotFound.
func (r *SuggestionRepository) Get(ctx context.Context, userID, candidateID uint64) (*db.UserSuggestion, error) {
	var row db.UserSuggestion
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND suggested_user_id = ?", userID, candidateID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
