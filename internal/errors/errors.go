// Package errors centralizes the domain error taxonomy and its mapping to
// user-facing messages. Services return sentinel errors; the telegram
// layer converts them with UserMessage so handlers stay free of copy.
package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientFunds: a deduct refused because the wallet balance
	// was below the requested amount. Recoverable, no state change.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrNoCandidate: the matcher found no eligible profile under the
	// current filters. Recoverable, the user should relax filters.
	ErrNoCandidate = errors.New("no eligible candidate")

	// ErrDuplicateField: admin tried to create a profile field whose
	// name already exists. Rejected before any mutation.
	ErrDuplicateField = errors.New("profile field name already exists")

	// ErrInvalidFieldName: field name is not a column-safe identifier.
	ErrInvalidFieldName = errors.New("invalid profile field name")

	// ErrInvalidInput: user input failed type validation for the field
	// being edited (non-numeric number, out-of-range select index, ...).
	ErrInvalidInput = errors.New("invalid input for field")

	// ErrSkipRequired: skip requested on a required field.
	ErrSkipRequired = errors.New("required field cannot be skipped")

	// ErrNotFound re-exports the storage-layer miss for callers that
	// should not import gorm directly.
	ErrNotFound = gorm.ErrRecordNotFound
)

// Is wraps errors.Is so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// Transient reports whether err looks like a temporary storage failure
// worth a bounded retry (connection loss, timeout). Domain refusals are
// never transient. database/sql retries ErrBadConn on its own, but only
// before the statement may have reached the server; a connection dropped
// mid-transaction surfaces here as a net or driver error instead.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrNoCandidate),
		errors.Is(err, gorm.ErrRecordNotFound):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gorm.ErrInvalidTransaction),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// UserMessage maps any error to the plain-language text shown to the end
// user. Unknown errors degrade to a generic failure; the caller is
// expected to offer a navigation option back to the main menu alongside.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "موجودی کیف پول شما کافی نیست. لطفا ابتدا کیف پول خود را شارژ کنید."
	case errors.Is(err, ErrNoCandidate):
		return "موردی مطابق فیلترهای شما پیدا نشد. فیلترها را تغییر دهید و دوباره تلاش کنید."
	case errors.Is(err, ErrDuplicateField):
		return "فیلدی با این نام قبلا ثبت شده است."
	case errors.Is(err, ErrInvalidFieldName):
		return "نام فیلد فقط می‌تواند شامل حروف انگلیسی، عدد و زیرخط باشد."
	case errors.Is(err, ErrInvalidInput):
		return "مقدار واردشده معتبر نیست. لطفا دوباره تلاش کنید."
	case errors.Is(err, ErrSkipRequired):
		return "این فیلد اجباری است و نمی‌توان از آن عبور کرد."
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "اطلاعات موردنظر پیدا نشد."
	default:
		return "خطایی رخ داد. لطفا کمی بعد دوباره تلاش کنید."
	}
}
