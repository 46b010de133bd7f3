package inventory

import (
	"errors"
	"net/http"

	"github.com/Christophertabanag/Inventory-System/internal/codegen"
	"github.com/Christophertabanag/Inventory-System/internal/platform/httpx"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
)

// UserMessage maps ledger errors to text shown on the forms.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateBarcode):
		return "This barcode already exists in inventory or the archive."
	case errors.Is(err, ErrDuplicateFrameCode):
		return "This frame code already exists in inventory."
	case errors.Is(err, ErrInsufficientStock):
		return "Not enough stock for this sale."
	case errors.Is(err, ErrOverReturn):
		return "Return quantity is more than was sold and not yet returned."
	case errors.Is(err, ErrArchivedItemNotSellable):
		return "This item is archived with no stock and cannot be sold."
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be greater than zero."
	case errors.Is(err, ErrNotFound):
		return "Product not found in inventory or archive."
	case errors.Is(err, ErrValidation):
		return validationDetail(err)
	case errors.Is(err, codegen.ErrSupplierRequired):
		return "Enter a supplier name first."
	case errors.Is(err, codegen.ErrBarcodeSpaceExhausted):
		return "No unused barcode is left in the configured range."
	case errors.Is(err, ErrNoInventoryFiles):
		return "No inventory files found in the inventory folder."
	default:
		return shared.UserSafeMessage(err)
	}
}

// StatusFor maps ledger errors to HTTP status codes.
func StatusFor(err error) int {
	var missing *records.NotFoundError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &missing):
		return http.StatusInternalServerError
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrOverReturn), errors.Is(err, ErrArchivedItemNotSellable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidQuantity), errors.Is(err, codegen.ErrSupplierRequired):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// ProblemKind translates a ledger error into the httpx error kinds.
func ProblemKind(err error) error {
	switch StatusFor(err) {
	case http.StatusConflict:
		return httpx.Kind(httpx.ErrDuplicate, err)
	case http.StatusNotFound:
		return httpx.Kind(httpx.ErrNotFound, err)
	case http.StatusUnprocessableEntity:
		return httpx.Kind(httpx.ErrUnprocessable, err)
	case http.StatusBadRequest:
		return httpx.Kind(httpx.ErrValidation, err)
	default:
		return err
	}
}

func validationDetail(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return "Please check the highlighted fields."
}
