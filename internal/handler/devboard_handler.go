package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/middleware"
	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/service"
)

type DevBoardHandler struct {
	board *service.DevBoardService
}

func NewDevBoardHandler(board *service.DevBoardService) *DevBoardHandler {
	return &DevBoardHandler{board: board}
}

func (h *DevBoardHandler) List(c *gin.Context) {
	page, err := h.board.List(c.Request.Context(), service.DevItemQuery{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.Query("search"),
		Status: c.DefaultQuery("status", "all"),
		Type:   c.DefaultQuery("type", "all"),
		Sort:   c.DefaultQuery("sort", "votes"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}

type devItemRequest struct {
	Title   string `json:"title"`
	Details string `json:"details"`
	Type    string `json:"type"`
}

func (h *DevBoardHandler) Create(c *gin.Context) {
	var req devItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.board.Create(c.Request.Context(), service.CreateDevItemInput{
		Title:   req.Title,
		Details: req.Details,
		Type:    req.Type,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

type devItemUpdateRequest struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	AdminNotes *string `json:"adminNotes"`
}

func (h *DevBoardHandler) Update(c *gin.Context) {
	var req devItemUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.board.Update(c.Request.Context(), service.UpdateDevItemInput{
		ID:         req.ID,
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

type voteRequest struct {
	ItemID string `json:"itemId"`
}

func (h *DevBoardHandler) ToggleVote(c *gin.Context) {
	var req voteRequest
	if !bindJSON(c, &req) {
		return
	}
	voted, err := h.board.ToggleVote(c.Request.Context(), req.ItemID, getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"voted": voted})
}

func (h *DevBoardHandler) HasVoted(c *gin.Context) {
	itemID := c.Query("itemId")
	if itemID == "" {
		badRequest(c, "Missing item ID")
		return
	}
	voted, err := h.board.HasVoted(c.Request.Context(), itemID, getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"hasVoted": voted})
}

func (h *DevBoardHandler) Comments(c *gin.Context) {
	comments, err := h.board.Comments(c.Request.Context(), c.Query("itemId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comments)
}

type commentRequest struct {
	ID       string `json:"id"`
	ItemID   string `json:"itemId"`
	ParentID string `json:"parentId"`
	Content  string `json:"content"`
}

func (h *DevBoardHandler) CreateComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.board.CreateComment(c.Request.Context(), service.CreateCommentInput{
		DevItemID: req.ItemID,
		UserID:    getUserID(c),
		ParentID:  req.ParentID,
		Content:   req.Content,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}

func (h *DevBoardHandler) UpdateComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.board.UpdateComment(c.Request.Context(), req.ID, getUserID(c), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}

func (h *DevBoardHandler) DeleteComment(c *gin.Context) {
	id := c.Query("id")
	if err := h.board.DeleteComment(c.Request.Context(), id, getUserID(c), middleware.IsAdmin(c)); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}
