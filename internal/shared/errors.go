package shared

import (
	"context"
	"errors"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserMessenger is implemented by errors carrying text fit for end users.
type UserMessenger interface {
	UserMessage() string
}

// UserSafeMessage maps an error to text that can be shown to staff without
// leaking paths or driver details.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessenger
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	var nf *records.NotFoundError
	switch {
	case errors.As(err, &nf):
		return "A required data file is missing. Check the inventory folder."
	case errors.Is(err, records.ErrUnsupportedFileType):
		return "Unsupported file type. Use .csv, .xlsx or .txt."
	case errors.Is(err, records.ErrEmptyWorkbook):
		return "The uploaded workbook has no data."
	case errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "Your form expired. Please try again."
	case errors.Is(err, ErrIdempotencyConflict):
		return "This form was already submitted."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	default:
		return "Something went wrong. Please try again."
	}
}
