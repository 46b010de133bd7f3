// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// Sentinel error kinds. Domain packages wrap or translate their own errors
// into one of these before calling RespondError.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrValidation      = errors.New("validation failed")
	ErrUnprocessable   = errors.New("unprocessable request")
	ErrUnsupportedType = errors.New("unsupported media type")
)

// Kind attaches an error kind to err while keeping its message.
func Kind(kind, err error) error {
	return &kindError{kind: kind, err: err}
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

// RespondError maps errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var missing *records.NotFoundError
	switch {
	case errors.As(err, &missing):
		Problem(w, http.StatusInternalServerError, "Data File Missing", "a required data file is missing")
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnprocessable):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, records.ErrUnsupportedFileType):
		Problem(w, http.StatusUnsupportedMediaType, "Unsupported File Type", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
