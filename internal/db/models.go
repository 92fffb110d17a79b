package db

import (
	"time"

	"gorm.io/datatypes"
)

// User is created on the first inbound update (find-or-create by telegram
// id) and mutated through profile editing and state transitions. Fixed
// profile attributes live here; admin-defined attributes live in
// UserProfileValue keyed by field name.
type User struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`
	ChatID     int64  `gorm:"not null"`
	FirstName  string `gorm:"size:128"`
	Username   string `gorm:"size:64"`

	// State is the durable conversation-state tag; use internal/state to
	// encode/decode, never match on the raw string.
	State string `gorm:"size:128;not null;default:start"`

	// Gender may hold any historical encoding (Persian label, English
	// word, letter, numeric code). Compare via internal/gender only.
	Gender string `gorm:"size:32"`
	City   string `gorm:"size:64"`
	Age    int

	IsProfileCompleted bool `gorm:"default:false"`

	ReferredBy *uint64 `gorm:"index"`
	InviteCode *string `gorm:"uniqueIndex;size:36"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Wallet is one-to-one with User and created lazily on first access.
// Balance is only ever mutated through the wallet repository's atomic
// charge/deduct paths, which also append a WalletTransaction.
type Wallet struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"uniqueIndex;not null"`
	Balance   int64     `gorm:"not null;default:0"` // never negative
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Transaction types.
const (
	TxCharge        = "charge"
	TxPurchase      = "purchase"
	TxReferralBonus = "referral_bonus"
	TxWithdraw      = "withdraw"
)

// WalletTransaction is the append-only ledger entry. Amount is signed:
// positive for credits, negative for debits.
type WalletTransaction struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	WalletID    uint64    `gorm:"index;not null"`
	Amount      int64     `gorm:"not null"`
	Type        string    `gorm:"size:32;not null;index"`
	Description string    `gorm:"size:255"`
	Status      string    `gorm:"size:32;not null;default:completed"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// UserFilter holds one JSON document per user with the fixed keys
// {gender, min_age, max_age, city[]}; the repository merges defaults so a
// partially written document always decodes complete.
type UserFilter struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	UserID    uint64         `gorm:"uniqueIndex;not null"`
	Filters   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

// Profile field types.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldSelect   = "select"
	FieldTextarea = "textarea"
)

// ProfileField is the admin-defined schema registry for dynamic profile
// attributes. Values are validated against it at write time.
type ProfileField struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	FieldName  string `gorm:"uniqueIndex;size:64;not null"`
	FieldLabel string `gorm:"size:128;not null"`
	FieldType  string `gorm:"size:16;not null;default:text"`

	IsRequired                bool `gorm:"default:false"`
	IsActive                  bool `gorm:"default:true"`
	IsHiddenForNonSubscribers bool `gorm:"default:false"`

	SortOrder int            `gorm:"default:0;index"`
	Options   datatypes.JSON // JSON array, select fields only

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UserProfileValue stores one dynamic attribute value per (user, field)
// pair. This side table replaces per-field ALTER TABLE on users.
type UserProfileValue struct {
	UserID    uint64    `gorm:"primaryKey"`
	FieldName string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"size:1024"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UserSuggestion records that a candidate was shown to a user.
//
// Composite PK: (UserID, SuggestedUserID) — at most one row per pair;
// repeated exposures increment ShownCount instead of inserting.
type UserSuggestion struct {
	UserID           uint64    `gorm:"primaryKey"`
	SuggestedUserID  uint64    `gorm:"primaryKey"`
	ShownCount       int       `gorm:"not null;default:1"`
	LastShownAt      time.Time `gorm:"not null"`
	ContactRequested bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// ContactRequest is the append-only purchase history. A row's existence
// means the pair's contact was bought once; later reveals are free, which
// also makes the purchase path idempotent under update replay.
type ContactRequest struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	UserID          uint64    `gorm:"not null;uniqueIndex:idx_contact_pair,priority:1"`
	RequestedUserID uint64    `gorm:"not null;uniqueIndex:idx_contact_pair,priority:2"`
	AmountPaid      int64     `gorm:"not null"`
	RequestedAt     time.Time `gorm:"autoCreateTime"`
}

// Referral is one row per referred user. HasPurchased flips exactly once;
// it is the idempotency guard for the referrer's bonus.
type Referral struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement"`
	ReferrerID   uint64     `gorm:"index;not null"`
	ReferredID   uint64     `gorm:"uniqueIndex;not null"`
	InviteCode   string     `gorm:"size:36;not null"`
	HasPurchased bool       `gorm:"not null;default:false"`
	BonusAmount  int64      `gorm:"not null;default:0"`
	BonusPaidAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Payment request statuses.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"
)

// PaymentRequest is the manual top-up workflow: the user declares a
// payment, an admin approves or rejects it. Approval charges the wallet
// and counts as a qualifying purchase for the referral engine.
type PaymentRequest struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement"`
	UserID     uint64     `gorm:"index;not null"`
	Amount     int64      `gorm:"not null"`
	Status     string     `gorm:"size:16;not null;default:pending;index"`
	ReviewedBy *int64
	ReviewedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// BotState is a small key/value table for process-wide durable state,
// currently only the long-poll update cursor. Explicit rows instead of
// hidden statics so the lifecycle is visible and resettable.
type BotState struct {
	// KEY is reserved in MySQL, hence the explicit column name.
	Key       string    `gorm:"primaryKey;column:state_key;size:64"`
	Value     string    `gorm:"size:255;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BotStateLastUpdateID is the durable getUpdates cursor key. It advances
// only after an update is fully handled, so delivery is at-least-once.
const BotStateLastUpdateID = "last_update_id"
