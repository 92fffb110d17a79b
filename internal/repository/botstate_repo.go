package repository

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortza214/dating-bot-sub000/internal/db"
)

// BotStateRepository persists process-wide durable values, currently the
// long-poll update cursor.
type BotStateRepository struct {
	db *gorm.DB
}

func NewBotStateRepository(database *gorm.DB) *BotStateRepository {
	return &BotStateRepository{db: database}
}

// LastUpdateID reads the durable getUpdates cursor; 0 means "from the
// beginning".
func (r *BotStateRepository) LastUpdateID(ctx context.Context) (int, error) {
	var row db.BotState
	err := r.db.WithContext(ctx).
		Where("state_key = ?", db.BotStateLastUpdateID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(row.Value)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

// SetLastUpdateID advances the cursor. Called only after an update was
// fully handled, so a crash replays the in-flight update (at-least-once).
func (r *BotStateRepository) SetLastUpdateID(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&db.BotState{
			Key:   db.BotStateLastUpdateID,
			Value: strconv.Itoa(id),
		}).Error
}
