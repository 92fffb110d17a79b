package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/utils/digits"
)

// Filters is the decoded per-user filter document. Ages are kept as
// strings ("" means unset) to match the stored document shape; City is
// never nil.
type Filters struct {
	Gender string   `json:"gender"`
	MinAge string   `json:"min_age"`
	MaxAge string   `json:"max_age"`
	City   []string `json:"city"`
}

// Active reports whether any filter dimension carries a real value.
// This is the gate between explicit-filter matching and the default
// opposite-gender logic — once true, filters are a hard constraint and
// the matcher must not fall back. An age bound counts only when it
// parses as a number; legacy rows can carry junk strings and those must
// not flip the matcher into filtered mode with the age dropped.
func (f Filters) Active() bool {
	if strings.TrimSpace(f.Gender) != "" {
		return true
	}
	if _, ok := digits.ParseInt(f.MinAge); ok {
		return true
	}
	if _, ok := digits.ParseInt(f.MaxAge); ok {
		return true
	}
	for _, c := range f.City {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

// Cities returns the city list with blank entries dropped.
func (f Filters) Cities() []string {
	out := make([]string, 0, len(f.City))
	for _, c := range f.City {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// FilterRepository persists one JSON filter document per user.
type FilterRepository struct {
	db *gorm.DB
}

func NewFilterRepository(database *gorm.DB) *FilterRepository {
	return &FilterRepository{db: database}
}

// Get returns the stored document merged with defaults for any missing
// key. A user with no row gets the all-defaults document, never an error.
func (r *FilterRepository) Get(ctx context.Context, userID uint64) (Filters, error) {
	defaults := Filters{City: []string{}}

	var row db.UserFilter
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return defaults, nil
		}
		return defaults, err
	}

	// Decode into the defaults so absent keys keep their zero values.
	f := defaults
	if len(row.Filters) > 0 {
		if err := json.Unmarshal(row.Filters, &f); err != nil {
			// A corrupt document degrades to defaults rather than
			// blocking the user.
			return defaults, nil
		}
	}
	if f.City == nil {
		f.City = []string{}
	}
	return f, nil
}

// Save upserts the document. City is always stored as an array (empty
// array means "no city restriction").
func (r *FilterRepository) Save(ctx context.Context, userID uint64, f Filters) error {
	if f.City == nil {
		f.City = []string{}
	}
	doc, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	row := db.UserFilter{
		UserID:  userID,
		Filters: datatypes.JSON(doc),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"filters", "updated_at"}),
		}).
		Create(&row).Error
}
