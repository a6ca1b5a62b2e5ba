package httpapi

import (
	"net/http"

	"library-circulation/library"
)

// ToHTTPStatus maps a library error to a response status.
func ToHTTPStatus(err error) int {
	switch library.ErrorCode(err) {
	case library.CodeNotFound:
		return http.StatusNotFound
	case library.CodeConflict:
		return http.StatusConflict
	case library.CodeLimitReached:
		return http.StatusUnprocessableEntity
	case library.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
