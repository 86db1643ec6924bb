package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
)

// detailErr keeps the sentinel for errors.Is while carrying a caller facing message.
type detailErr struct {
	kind error
	msg  string
}

func (e *detailErr) Error() string {
	return e.msg
}

func (e *detailErr) Unwrap() error {
	return e.kind
}

func Invalid(format string, args ...interface{}) error {
	return &detailErr{kind: ErrInvalid, msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &detailErr{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &detailErr{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) error {
	return &detailErr{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &detailErr{kind: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

// Message returns the detail message of err when it was built by one of the
// helpers above, and def otherwise.
func Message(err error, def string) string {
	var d *detailErr
	if errors.As(err, &d) {
		return d.msg
	}
	return def
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
