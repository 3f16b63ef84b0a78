package dto

import (
	"net/http"

	"github.com/erp/openadmin/internal/domain/shared"
)

// Error codes. Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal       = "ERR_INTERNAL"
	ErrCodeValidation     = "ERR_VALIDATION"
	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON    = "ERR_INVALID_JSON"
	ErrCodeInvalidSandbox = "ERR_INVALID_SANDBOX"
	ErrCodeTooLarge       = "ERR_REQUEST_TOO_LARGE"
	ErrCodeForbidden      = "ERR_FORBIDDEN"
	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeFormat         = "ERR_FORMAT"
	ErrCodeUnsupported    = "ERR_UNSUPPORTED"
)

// errorKindHTTP maps service error kinds to status and error code
var errorKindHTTP = map[shared.ErrorKind]struct {
	status int
	code   string
}{
	shared.KindSecurity:    {http.StatusForbidden, ErrCodeForbidden},
	shared.KindNotFound:    {http.StatusNotFound, ErrCodeNotFound},
	shared.KindFormat:      {http.StatusBadRequest, ErrCodeFormat},
	shared.KindUnsupported: {http.StatusNotImplemented, ErrCodeUnsupported},
	shared.KindUnexpected:  {http.StatusInternalServerError, ErrCodeInternal},
}

// GetHTTPStatus returns the HTTP status of an error kind. Unknown kinds are
// internal errors.
func GetHTTPStatus(kind shared.ErrorKind) int {
	if m, ok := errorKindHTTP[kind]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// ErrorCode returns the response error code of an error kind
func ErrorCode(kind shared.ErrorKind) string {
	if m, ok := errorKindHTTP[kind]; ok {
		return m.code
	}
	return ErrCodeInternal
}
