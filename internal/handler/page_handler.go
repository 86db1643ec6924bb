package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/doctree"
	"github.com/xxxsen/yawiki/internal/pkg/response"
	"github.com/xxxsen/yawiki/internal/service"
)

type PageHandler struct {
	pages *service.PageService
}

func NewPageHandler(pages *service.PageService) *PageHandler {
	return &PageHandler{pages: pages}
}

type updateFileRequest struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Title    string `json:"title"`
	IsPublic *bool  `json:"isPublic"`
	Slug     string `json:"slug"`
	Version  int    `json:"version"`
	Format   string `json:"format"`
}

func (h *PageHandler) UpdateFile(c *gin.Context) {
	var req updateFileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.pages.Save(c.Request.Context(), service.SavePageInput{
		SaveInput: doctree.SaveInput{
			Path:     req.Path,
			Content:  req.Content,
			Title:    req.Title,
			IsPublic: req.IsPublic,
			Slug:     req.Slug,
			Version:  req.Version,
		},
		Format: req.Format,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "File updated successfully", "node": res.Node, "created": res.Created})
}

// canSeePrivate reports whether the caller may read private pages.
func canSeePrivate(c *gin.Context) bool {
	return getUserID(c) != ""
}

func (h *PageHandler) FileStructure(c *gin.Context) {
	response.Success(c, gin.H{"pages": h.pages.Tree(canSeePrivate(c))})
}

func (h *PageHandler) FileContent(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		badRequest(c, "No path provided")
		return
	}
	content, err := h.pages.Content(c.Request.Context(), path, canSeePrivate(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}

func (h *PageHandler) Page(c *gin.Context) {
	view, err := h.pages.Page(c.Request.Context(), c.Param("slug"), canSeePrivate(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *PageHandler) Search(c *gin.Context) {
	results, err := h.pages.Search(c.Request.Context(), c.Query("q"), canSeePrivate(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, results)
}

type renameRequest struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

func (h *PageHandler) Rename(c *gin.Context) {
	var req renameRequest
	if !bindJSON(c, &req) {
		return
	}
	node, err := h.pages.Rename(c.Request.Context(), req.Path, req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"slug": node.Slug, "node": node})
}

type sortOrderRequest struct {
	Path      string `json:"path"`
	SortOrder int    `json:"sortOrder"`
}

func (h *PageHandler) UpdateSortOrder(c *gin.Context) {
	var req sortOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.pages.UpdateSortOrder(c.Request.Context(), req.Path, req.SortOrder); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"path": req.Path, "sortOrder": req.SortOrder})
}

type deleteItemRequest struct {
	Path string `json:"path"`
}

func (h *PageHandler) Delete(c *gin.Context) {
	var req deleteItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.pages.Delete(c.Request.Context(), req.Path); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"path": req.Path})
}

func (h *PageHandler) Check(c *gin.Context) {
	report, err := h.pages.Check(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}
