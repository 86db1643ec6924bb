package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/middleware"
	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req authRequest
	if !bindJSON(c, &req) {
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req authRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(c, "email and password are required")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if claims := middleware.Claims(c); claims != nil {
		if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
			handleError(c, err)
			return
		}
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *AuthHandler) UpdateLastLogin(c *gin.Context) {
	if err := h.auth.UpdateLastLogin(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AuthHandler) CheckEmail(c *gin.Context) {
	available, err := h.auth.EmailAvailable(c.Request.Context(), c.Query("email"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"exists": !available})
}

type profileRequest struct {
	Name string `json:"name"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), getUserID(c), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), getUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
