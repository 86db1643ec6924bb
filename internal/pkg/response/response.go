// Package response writes the {code, msg, data} envelope shared by every
// endpoint.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/yawiki/internal/pkg/errcode"
)

// apiError carries the business code next to the message so proxyutil can
// fill the envelope.
type apiError struct {
	code uint32
	msg  string
}

func (e *apiError) Error() string { return e.msg }

func (e *apiError) Code() uint32 { return e.code }

func NewError(code int, msg string) error {
	return &apiError{code: uint32(code), msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes a failure with the http status mapped from code.
func Error(c *gin.Context, code int, msg string) {
	proxyutil.FailJson(c, errcode.HTTPStatus(code), NewError(code, msg))
}

// Abort is Error for middlewares: the remaining handlers are skipped.
func Abort(c *gin.Context, code int, msg string) {
	Error(c, code, msg)
	c.Abort()
}
