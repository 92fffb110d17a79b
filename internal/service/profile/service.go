package profile

import (
	"context"
	"strconv"
	"strings"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/state"
	"github.com/mortza214/dating-bot-sub000/internal/utils/digits"
)

// Step is the wizard position presented to the user.
type Step struct {
	Field   db.ProfileField
	Index   int // zero-based position in the active-field list
	Total   int
	Options []string // decoded options for select fields
}

// Service drives the stateful multi-step profile edit flow over the
// admin-defined field registry.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	fields *repository.FieldRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		fields: repository.NewFieldRepository(appCtx.DB),
	}
}

// Begin enters the wizard at the first active field. With no active
// fields the profile is trivially complete and the user returns to the
// main menu.
func (s *Service) Begin(ctx context.Context, user *db.User) (*Step, error) {
	fields, err := s.fields.ActiveFields(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, s.finish(ctx, user)
	}
	return s.anchor(ctx, user, fields, 0)
}

// Current resolves the user's wizard position from their stored state.
// If the state's field was deactivated or renamed mid-session, the
// active-field list is recomputed and the user re-anchors to a valid
// field instead of erroring.
func (s *Service) Current(ctx context.Context, user *db.User) (*Step, error) {
	fields, err := s.fields.ActiveFields(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, s.finish(ctx, user)
	}

	st := state.Parse(user.State)
	if st.Kind == state.KindEditingField {
		for i, f := range fields {
			if f.FieldName == st.Field {
				return s.step(fields, i), nil
			}
		}
		s.appCtx.Logger.Warn("stale editing state, re-anchoring",
			"user_id", user.ID, "field", st.Field)
	}
	return s.anchor(ctx, user, fields, 0)
}

// Input validates and stores the user's answer for the current field,
// then advances. The returned step is nil when the wizard finished.
func (s *Service) Input(ctx context.Context, user *db.User, text string) (*Step, error) {
	cur, err := s.Current(ctx, user)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}

	value, err := s.validate(&cur.Field, cur.Options, text)
	if err != nil {
		return cur, err
	}
	if err := s.store(ctx, user, &cur.Field, value); err != nil {
		return nil, err
	}
	return s.advance(ctx, user, cur, +1)
}

// Skip moves past a non-required field without storing a value.
func (s *Service) Skip(ctx context.Context, user *db.User) (*Step, error) {
	cur, err := s.Current(ctx, user)
	if err != nil || cur == nil {
		return nil, err
	}
	if cur.Field.IsRequired {
		return cur, domainErr.ErrSkipRequired
	}
	return s.advance(ctx, user, cur, +1)
}

// Prev steps back one field; at the first field it stays put.
func (s *Service) Prev(ctx context.Context, user *db.User) (*Step, error) {
	cur, err := s.Current(ctx, user)
	if err != nil || cur == nil {
		return nil, err
	}
	if cur.Index == 0 {
		return cur, nil
	}
	return s.advance(ctx, user, cur, -1)
}

// SaveAndExit leaves the wizard from any position, recomputing the
// completion flag.
func (s *Service) SaveAndExit(ctx context.Context, user *db.User) error {
	return s.finish(ctx, user)
}

// IsComplete recomputes whether every required active field has a value.
func (s *Service) IsComplete(ctx context.Context, user *db.User) (bool, error) {
	fields, err := s.fields.ActiveFields(ctx)
	if err != nil {
		return false, err
	}
	values, err := s.fields.Values(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, f := range fields {
		if !f.IsRequired {
			continue
		}
		if strings.TrimSpace(s.fieldValue(user, values, f.FieldName)) == "" {
			return false, nil
		}
	}
	return true, nil
}

// --- internals ---

func (s *Service) step(fields []db.ProfileField, i int) *Step {
	return &Step{
		Field:   fields[i],
		Index:   i,
		Total:   len(fields),
		Options: s.fields.Options(&fields[i]),
	}
}

func (s *Service) anchor(ctx context.Context, user *db.User, fields []db.ProfileField, i int) (*Step, error) {
	st := state.EditingField(fields[i].FieldName)
	if err := s.users.SetState(ctx, user.ID, st); err != nil {
		return nil, err
	}
	user.State = st.String()
	return s.step(fields, i), nil
}

func (s *Service) advance(ctx context.Context, user *db.User, cur *Step, dir int) (*Step, error) {
	fields, err := s.fields.ActiveFields(ctx)
	if err != nil {
		return nil, err
	}
	next := cur.Index + dir
	if next >= len(fields) {
		return nil, s.finish(ctx, user)
	}
	if next < 0 {
		next = 0
	}
	return s.anchor(ctx, user, fields, next)
}

func (s *Service) finish(ctx context.Context, user *db.User) error {
	complete, err := s.IsComplete(ctx, user)
	if err != nil {
		return err
	}
	if err := s.users.SetProfileCompleted(ctx, user.ID, complete); err != nil {
		return err
	}
	user.IsProfileCompleted = complete
	if err := s.users.SetState(ctx, user.ID, state.MainMenu); err != nil {
		return err
	}
	user.State = state.MainMenu.String()
	s.appCtx.Logger.Debug("profile edit finished",
		"user_id", user.ID, "complete", complete)
	return nil
}

// validate applies type-specific rules and returns the value to store.
func (s *Service) validate(field *db.ProfileField, options []string, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domainErr.ErrInvalidInput
	}

	switch field.FieldType {
	case db.FieldNumber:
		n, ok := digits.ParseInt(text)
		if !ok || n < 0 {
			return "", domainErr.ErrInvalidInput
		}
		return digits.Normalize(text), nil

	case db.FieldSelect:
		// Accept a 1-based option index or the option text itself.
		if n, ok := digits.ParseInt(text); ok {
			if n < 1 || n > len(options) {
				return "", domainErr.ErrInvalidInput
			}
			return options[n-1], nil
		}
		for _, opt := range options {
			if opt == text {
				return opt, nil
			}
		}
		return "", domainErr.ErrInvalidInput

	default: // text, textarea
		return text, nil
	}
}

// store writes the value to the side table and mirrors the fixed
// matching dimensions (gender/city/age) onto the user row so candidate
// queries stay on indexed columns.
func (s *Service) store(ctx context.Context, user *db.User, field *db.ProfileField, value string) error {
	if err := s.fields.SetValue(ctx, user.ID, field.FieldName, value); err != nil {
		return err
	}

	switch field.FieldName {
	case "gender":
		user.Gender = value
		return s.users.Update(ctx, user.ID, map[string]any{"gender": value})
	case "city":
		user.City = value
		return s.users.Update(ctx, user.ID, map[string]any{"city": value})
	case "age":
		n, _ := digits.ParseInt(value)
		user.Age = n
		return s.users.Update(ctx, user.ID, map[string]any{"age": n})
	}
	return nil
}

// fieldValue prefers the mirrored user column for the fixed dimensions.
func (s *Service) fieldValue(user *db.User, values map[string]string, fieldName string) string {
	switch fieldName {
	case "gender":
		if user.Gender != "" {
			return user.Gender
		}
	case "city":
		if user.City != "" {
			return user.City
		}
	case "age":
		if user.Age > 0 {
			return strconv.Itoa(user.Age)
		}
	}
	return values[fieldName]
}
