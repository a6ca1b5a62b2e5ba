package library

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound         = errors.New("item not found")
	ErrPatronNotFound       = errors.New("patron not found")
	ErrStaffNotFound        = errors.New("librarian not found")
	ErrDuplicateItem        = errors.New("item id already in catalog")
	ErrCheckoutLimit        = errors.New("patron has reached the checkout limit")
	ErrItemUnavailable      = errors.New("item is not available")
	ErrItemCheckedOut       = errors.New("item is checked out")
	ErrNoReservation        = errors.New("no active reservation")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidStatus        = errors.New("invalid item status")
	ErrUnknownKind          = errors.New("unknown item kind")
)

// Error codes shared by the presentation layers.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeLimitReached    = "LIMIT_REACHED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
)

// ErrorCode classifies err into one of the Code* constants.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrPatronNotFound),
		errors.Is(err, ErrStaffNotFound), errors.Is(err, ErrNoReservation),
		errors.Is(err, ErrNotificationNotFound):
		return CodeNotFound
	case errors.Is(err, ErrCheckoutLimit):
		return CodeLimitReached
	case errors.Is(err, ErrDuplicateItem), errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrItemCheckedOut):
		return CodeConflict
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrUnknownKind):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}

func itemNotFound(id int64) error   { return fmt.Errorf("%w: %d", ErrItemNotFound, id) }
func patronNotFound(id int64) error { return fmt.Errorf("%w: %d", ErrPatronNotFound, id) }

// mustID enforces the positive-id contract on constructors.
func mustID(what string, id int64) {
	if id <= 0 {
		panic(fmt.Sprintf("library: %s id must be positive, got %d", what, id))
	}
}
