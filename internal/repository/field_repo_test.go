package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
)

func TestCreateFieldValidation(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewFieldRepository(gdb)

	require.NoError(t, repo.Create(ctx, db.ProfileField{
		FieldName:  "height",
		FieldLabel: "قد",
		FieldType:  db.FieldNumber,
		IsRequired: true,
	}))

	// duplicate name rejected before any mutation
	err := repo.Create(ctx, db.ProfileField{FieldName: "height", FieldLabel: "قد ۲", FieldType: db.FieldNumber})
	assert.ErrorIs(t, err, domainErr.ErrDuplicateField)

	// names must be column-safe identifiers
	for _, bad := range []string{"", "1height", "my field", "field-name", "قد"} {
		err := repo.Create(ctx, db.ProfileField{FieldName: bad, FieldLabel: "x", FieldType: db.FieldText})
		assert.ErrorIs(t, err, domainErr.ErrInvalidFieldName, "name=%q", bad)
	}

	var count int64
	require.NoError(t, gdb.Model(&db.ProfileField{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestActiveFieldsSorted(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewFieldRepository(gdb)

	require.NoError(t, repo.Create(ctx, db.ProfileField{FieldName: "bio", FieldLabel: "درباره من", FieldType: db.FieldTextarea, IsActive: true, SortOrder: 2}))
	require.NoError(t, repo.Create(ctx, db.ProfileField{FieldName: "height", FieldLabel: "قد", FieldType: db.FieldNumber, IsActive: true, SortOrder: 1}))
	require.NoError(t, repo.Create(ctx, db.ProfileField{FieldName: "job", FieldLabel: "شغل", FieldType: db.FieldText, IsActive: false, SortOrder: 0}))

	fields, err := repo.ActiveFields(ctx)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "height", fields[0].FieldName)
	assert.Equal(t, "bio", fields[1].FieldName)
}

func TestSetFlagsDeactivates(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewFieldRepository(gdb)

	require.NoError(t, repo.Create(ctx, db.ProfileField{FieldName: "height", FieldLabel: "قد", FieldType: db.FieldNumber, IsActive: true}))
	require.NoError(t, repo.SetFlags(ctx, "height", map[string]any{"is_active": false}))

	fields, err := repo.ActiveFields(ctx)
	require.NoError(t, err)
	assert.Empty(t, fields)

	err = repo.SetFlags(ctx, "missing", map[string]any{"is_active": true})
	assert.ErrorIs(t, err, domainErr.ErrNotFound)
}

func TestValuesUpsertAndRead(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewFieldRepository(gdb)

	require.NoError(t, repo.SetValue(ctx, 1, "height", "180"))
	require.NoError(t, repo.SetValue(ctx, 1, "height", "182")) // overwrite
	require.NoError(t, repo.SetValue(ctx, 1, "bio", "hi"))

	v, err := repo.GetValue(ctx, 1, "height")
	require.NoError(t, err)
	assert.Equal(t, "182", v)

	// missing value reads as empty, not error
	v, err = repo.GetValue(ctx, 1, "job")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	all, err := repo.Values(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"height": "182", "bio": "hi"}, all)
}

func TestSelectOptionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewFieldRepository(gdb)

	require.NoError(t, repo.Create(ctx, db.ProfileField{
		FieldName:  "marital_status",
		FieldLabel: "وضعیت تاهل",
		FieldType:  db.FieldSelect,
		IsActive:   true,
		Options:    repository.EncodeOptions([]string{"مجرد", "متاهل"}),
	}))

	field, err := repo.GetByName(ctx, "marital_status")
	require.NoError(t, err)
	assert.Equal(t, []string{"مجرد", "متاهل"}, repo.Options(field))
}
