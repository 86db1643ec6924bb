package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/pkg/errcode"
	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/service"
)

type AvatarHandler struct {
	avatars *service.AvatarService
}

func NewAvatarHandler(avatars *service.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatars: avatars}
}

func (h *AvatarHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxAvatarSize+(1<<20))
	file, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "avatar is required")
		return
	}
	if file.Size > service.MaxAvatarSize {
		response.Error(c, errcode.ErrInvalidFile, "avatar must be at most 5MB")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	url, err := h.avatars.Upload(c.Request.Context(), getUserID(c), opened)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"avatarUrl": url})
}

func (h *AvatarHandler) Get(c *gin.Context) {
	key := c.Param("key")
	file, err := h.avatars.Open(c.Request.Context(), key)
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
