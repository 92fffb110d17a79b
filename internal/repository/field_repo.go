package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
)

// field names must stay column-safe identifiers
var fieldNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// FieldRepository owns the ProfileField schema registry and the dynamic
// attribute values stored against it.
type FieldRepository struct {
	db *gorm.DB
}

func NewFieldRepository(database *gorm.DB) *FieldRepository {
	return &FieldRepository{db: database}
}

// ActiveFields returns the active fields in sort order — the wizard's
// step list and the matcher's dynamic dimension list.
func (r *FieldRepository) ActiveFields(ctx context.Context) ([]db.ProfileField, error) {
	var fields []db.ProfileField
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&fields).Error
	return fields, err
}

// GetByName loads a field descriptor regardless of active flag.
func (r *FieldRepository) GetByName(ctx context.Context, name string) (*db.ProfileField, error) {
	var field db.ProfileField
	if err := r.db.WithContext(ctx).Where("field_name = ?", name).First(&field).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

// Create registers a new admin-defined field. Validation happens before
// any mutation: a bad or duplicate name leaves the registry untouched.
func (r *FieldRepository) Create(ctx context.Context, field db.ProfileField) error {
	if !fieldNameRe.MatchString(field.FieldName) {
		return domainErr.ErrInvalidFieldName
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&db.ProfileField{}).
		Where("field_name = ?", field.FieldName).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domainErr.ErrDuplicateField
	}

	return r.db.WithContext(ctx).Create(&field).Error
}

// SetFlags toggles the admin-controlled flags on a field. Fields are
// never deleted, only deactivated.
func (r *FieldRepository) SetFlags(ctx context.Context, name string, flags map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&db.ProfileField{}).
		Where("field_name = ?", name).
		Updates(flags)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Options decodes a select field's option list.
func (f *FieldRepository) Options(field *db.ProfileField) []string {
	if len(field.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(field.Options, &opts); err != nil {
		return nil
	}
	return opts
}

// EncodeOptions builds the stored JSON array for a select field.
func EncodeOptions(opts []string) datatypes.JSON {
	b, err := json.Marshal(opts)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// SetValue upserts one dynamic attribute value for a user.
func (r *FieldRepository) SetValue(ctx context.Context, userID uint64, fieldName, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "field_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&db.UserProfileValue{
			UserID:    userID,
			FieldName: fieldName,
			Value:     value,
		}).Error
}

// GetValue reads one dynamic attribute value; missing rows read as "".
func (r *FieldRepository) GetValue(ctx context.Context, userID uint64, fieldName string) (string, error) {
	var row db.UserProfileValue
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND field_name = ?", userID, fieldName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Values returns every stored dynamic attribute for a user keyed by
// field name.
func (r *FieldRepository) Values(ctx context.Context, userID uint64) (map[string]string, error) {
	var rows []db.UserProfileValue
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.FieldName] = row.Value
	}
	return out, nil
}
