package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/gender"
	"github.com/mortza214/dating-bot-sub000/internal/state"
)

// UserRepository provides data access for users, including the candidate
// pool queries used by the matcher.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// FindOrCreateByTelegramID resolves the sender of an inbound update,
// creating the user on first contact.
func (r *UserRepository) FindOrCreateByTelegramID(ctx context.Context, telegramID, chatID int64, firstName, username string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = db.User{
		TelegramID: telegramID,
		ChatID:     chatID,
		FirstName:  firstName,
		Username:   username,
		State:      state.Start.String(),
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID loads a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetState persists the user's conversation state tag.
func (r *UserRepository) SetState(ctx context.Context, userID uint64, s state.State) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("state", s.String()).Error
}

// Update persists arbitrary column changes for a user.
func (r *UserRepository) Update(ctx context.Context, userID uint64, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}

// SetProfileCompleted caches the derived completion flag.
func (r *UserRepository) SetProfileCompleted(ctx context.Context, userID uint64, completed bool) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("is_profile_completed", completed).Error
}

// EnsureInviteCode returns the user's invite code, generating one lazily
// on first request.
func (r *UserRepository) EnsureInviteCode(ctx context.Context, userID uint64) (string, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.InviteCode != nil && *user.InviteCode != "" {
		return *user.InviteCode, nil
	}

	code := uuid.NewString()
	err = r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND (invite_code IS NULL OR invite_code = '')", userID).
		Update("invite_code", code).Error
	if err != nil {
		return "", err
	}
	// Re-read in case a concurrent call won the write.
	user, err = r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return *user.InviteCode, nil
}

// GetByInviteCode resolves a referrer from an invite code.
func (r *UserRepository) GetByInviteCode(ctx context.Context, code string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CandidateQuery describes one candidate-pool selection. Zero values mean
// "dimension not constrained". Gender values are canonical; the query
// expands them to every historical encoding.
type CandidateQuery struct {
	ExcludeIDs []uint64
	Gender     string // canonical, "" = any
	Cities     []string
	MinAge     int // 0 = unbounded
	MaxAge     int // 0 = unbounded
	PoolSize   int // random-order cap, performance bound only
}

// FindCandidates returns up to PoolSize profile-complete users matching
// the conjunctive predicate, in random order. An empty result means no
// eligible candidate exists — callers must not relax the predicate.
func (r *UserRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]db.User, error) {
	tx := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("is_profile_completed = ?", true)

	if len(q.ExcludeIDs) > 0 {
		tx = tx.Where("id NOT IN ?", q.ExcludeIDs)
	}
	if q.Gender != "" {
		variants := gender.Variants(q.Gender)
		if len(variants) == 0 {
			// Unrecognized gender matches nothing rather than everything.
			return nil, nil
		}
		tx = tx.Where("gender IN ?", variants)
	}
	if len(q.Cities) > 0 {
		tx = tx.Where("city IN ?", q.Cities)
	}
	if q.MinAge > 0 {
		tx = tx.Where("age >= ?", q.MinAge)
	}
	if q.MaxAge > 0 {
		tx = tx.Where("age <= ?", q.MaxAge)
	}

	pool := q.PoolSize
	if pool <= 0 {
		pool = 50
	}

	var users []db.User
	err := tx.Order(db.RandomOrder(r.db)).Limit(pool).Find(&users).Error
	return users, err
}
