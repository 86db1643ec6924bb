package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/middleware"
	"github.com/xxxsen/yawiki/internal/pkg/errcode"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return middleware.UserID(c)
}

func errorCode(err error, fallback int) int {
	switch {
	case appErr.IsUnauthorized(err):
		return errcode.ErrUnauthorized
	case appErr.IsForbidden(err):
		return errcode.ErrForbidden
	case appErr.IsNotFound(err):
		return errcode.ErrNotFound
	case appErr.IsInvalid(err):
		return errcode.ErrInvalid
	case appErr.IsConflict(err):
		return errcode.ErrConflict
	default:
		return fallback
	}
}

func handleError(c *gin.Context, err error) {
	handleErrorAs(c, err, errcode.ErrInternal)
}

// handleErrorAs writes err, using fallback for errors that carry no sentinel.
func handleErrorAs(c *gin.Context, err error, fallback int) {
	if err == nil {
		return
	}
	code := errorCode(err, fallback)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
	)
	if code == fallback {
		logger.Error("request failed", zap.Error(err))
		response.Error(c, code, err.Error())
		return
	}
	logger.Debug("request rejected", zap.Error(err))
	response.Error(c, code, appErr.Message(err, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	response.Error(c, errcode.ErrInvalid, msg)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
