package errcode

import "net/http"

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrLicenseFailed
)

func HTTPStatus(code int) int {
	switch code {
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalid, ErrInvalidFile:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrTooMany:
		return http.StatusTooManyRequests
	case ErrLicenseFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
