package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Summary(c *gin.Context) {
	summary, err := h.reviews.Summary(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summary)
}

type reviewRequest struct {
	ReviewID string `json:"reviewId"`
	Rating   int    `json:"rating"`
	Review   string `json:"review"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), getUserID(c), req.Rating, req.Review)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, review)
}

func (h *ReviewHandler) Update(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Update(c.Request.Context(), getUserID(c), req.ReviewID, req.Rating, req.Review)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, review)
}

func (h *ReviewHandler) GetByUser(c *gin.Context) {
	review, err := h.reviews.GetByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, review)
}
