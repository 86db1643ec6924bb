package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/pkg/errcode"
	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/service"
)

type LicenseHandler struct {
	licenses *service.LicenseService
}

func NewLicenseHandler(licenses *service.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}


type licenseRequest struct {
	Email string `json:"email"`
}

func (h *LicenseHandler) Generate(c *gin.Context) {
	var req licenseRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Email == "" {
		badRequest(c, "Email is required")
		return
	}
	res, err := h.licenses.Generate(c.Request.Context(), req.Email)
	if err != nil {
		handleErrorAs(c, err, errcode.ErrLicenseFailed)
		return
	}
	response.Success(c, res)
}

func (h *LicenseHandler) Lookup(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "Email is required")
		return
	}
	raw, err := h.licenses.Lookup(c.Request.Context(), email)
	if err != nil {
		handleErrorAs(c, err, errcode.ErrLicenseFailed)
		return
	}
	response.Success(c, raw)
}
