package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/settings"
)

type SettingsHandler struct {
	promotions *settings.PromotionStore
	terms      *settings.TermsStore
}

func NewSettingsHandler(promotions *settings.PromotionStore, terms *settings.TermsStore) *SettingsHandler {
	return &SettingsHandler{promotions: promotions, terms: terms}
}

func (h *SettingsHandler) ListPromotions(c *gin.Context) {
	all, err := h.promotions.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, all)
}

func (h *SettingsHandler) SavePromotion(c *gin.Context) {
	var p settings.Promotion
	if !bindJSON(c, &p) {
		return
	}
	if err := h.promotions.Save(c.Request.Context(), &p); err != nil {
		handleError(c, err)
		return
	}
	saved, err := h.promotions.Get(c.Request.Context(), p.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, saved)
}

type promotionIDRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

func (h *SettingsHandler) DeletePromotion(c *gin.Context) {
	var req promotionIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.promotions.Delete(c.Request.Context(), req.ID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": req.ID})
}

func (h *SettingsHandler) TrackPromotion(c *gin.Context) {
	var req promotionIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.promotions.Track(c.Request.Context(), req.ID, req.Action); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": req.ID, "action": req.Action})
}

func (h *SettingsHandler) GetTerms(c *gin.Context) {
	terms, err := h.terms.Get(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, terms)
}

type termsRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (h *SettingsHandler) UpdateTerms(c *gin.Context) {
	var req termsRequest
	if !bindJSON(c, &req) {
		return
	}
	terms, err := h.terms.Update(c.Request.Context(), req.Type, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, terms)
}
