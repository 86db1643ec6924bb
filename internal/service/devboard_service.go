package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/model"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/idutil"
	"github.com/xxxsen/yawiki/internal/pkg/timeutil"
	"github.com/xxxsen/yawiki/internal/repo"
)

const (
	defaultDevItemLimit = 10
	maxDevItemLimit     = 100
)

type DevItemQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
	Type   string
	Sort   string
}

type Pagination struct {
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
}

type DevItemPage struct {
	Items      []*model.DevItemStat `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

type CreateDevItemInput struct {
	Title   string
	Details string
	Type    string
}

type UpdateDevItemInput struct {
	ID         string
	Status     string
	// AdminNotes replaces the stored notes when non-nil.
	AdminNotes *string
}

type DevBoardService struct {
	items    *repo.DevItemRepo
	votes    *repo.VoteRepo
	comments *repo.CommentRepo
}

func NewDevBoardService(items *repo.DevItemRepo, votes *repo.VoteRepo, comments *repo.CommentRepo) *DevBoardService {
	return &DevBoardService{items: items, votes: votes, comments: comments}
}

// List returns one page of the board. Every returned item counts as viewed.
func (s *DevBoardService) List(ctx context.Context, q DevItemQuery) (*DevItemPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultDevItemLimit
	}
	if q.Limit > maxDevItemLimit {
		q.Limit = maxDevItemLimit
	}
	items, total, err := s.items.List(ctx, model.DevItemFilter{
		Search: strings.TrimSpace(q.Search),
		Status: q.Status,
		Type:   q.Type,
		Sort:   q.Sort,
		Offset: (q.Page - 1) * q.Limit,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		item.Views++
	}
	if err := s.items.IncrementViews(ctx, ids); err != nil {
		logutil.GetLogger(ctx).Warn("increment dev item views failed", zap.Error(err))
	}
	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &DevItemPage{
		Items:      items,
		Pagination: Pagination{Page: q.Page, Pages: pages, Total: total},
	}, nil
}

func (s *DevBoardService) Create(ctx context.Context, in CreateDevItemInput) (*model.DevItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Details = strings.TrimSpace(in.Details)
	in.Type = strings.TrimSpace(in.Type)
	if in.Title == "" || in.Details == "" || in.Type == "" {
		return nil, appErr.Invalid("title, details and type are required")
	}
	now := timeutil.NowUnix()
	item := &model.DevItem{
		ID:      idutil.NewID(),
		Title:   in.Title,
		Details: in.Details,
		Type:    in.Type,
		Status:  model.DevItemStatusNew,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *DevBoardService) Update(ctx context.Context, in UpdateDevItemInput) (*model.DevItemStat, error) {
	if in.ID == "" {
		return nil, appErr.Invalid("id is required")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" && in.AdminNotes == nil {
		return nil, appErr.Invalid("status or adminNotes is required")
	}
	now := timeutil.NowUnix()
	var completedAt int64
	if status == model.DevItemStatusDone {
		completedAt = now
	}
	if err := s.items.Update(ctx, in.ID, status, in.AdminNotes, completedAt, now); err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.NotFound("dev item not found")
		}
		return nil, err
	}
	return s.items.GetStat(ctx, in.ID)
}

// ToggleVote removes the user's vote on itemID if present, otherwise adds one.
// It reports whether the user has voted afterwards.
func (s *DevBoardService) ToggleVote(ctx context.Context, itemID, userID string) (bool, error) {
	if itemID == "" {
		return false, appErr.Invalid("devItemId is required")
	}
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		if appErr.IsNotFound(err) {
			return false, appErr.NotFound("dev item not found")
		}
		return false, err
	}
	existing, err := s.votes.Find(ctx, itemID, userID)
	switch {
	case err == nil:
		if err := s.votes.Delete(ctx, existing.ID); err != nil {
			return false, err
		}
		return false, nil
	case !appErr.IsNotFound(err):
		return false, err
	}
	vote := &model.DevItemVote{
		ID:        idutil.NewID(),
		DevItemID: itemID,
		UserID:    userID,
		Ctime:     timeutil.NowUnix(),
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		// a concurrent request already voted
		if appErr.IsConflict(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (s *DevBoardService) HasVoted(ctx context.Context, itemID, userID string) (bool, error) {
	_, err := s.votes.Find(ctx, itemID, userID)
	if appErr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DevBoardService) Comments(ctx context.Context, itemID string) ([]*model.CommentView, error) {
	if itemID == "" {
		return nil, appErr.Invalid("devItemId is required")
	}
	return s.comments.ListByItem(ctx, itemID)
}

type CreateCommentInput struct {
	DevItemID string
	UserID    string
	ParentID  string
	Content   string
}

func (s *DevBoardService) CreateComment(ctx context.Context, in CreateCommentInput) (*model.DevItemComment, error) {
	content := strings.TrimSpace(in.Content)
	if in.DevItemID == "" || content == "" {
		return nil, appErr.Invalid("devItemId and content are required")
	}
	if _, err := s.items.GetByID(ctx, in.DevItemID); err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.NotFound("dev item not found")
		}
		return nil, err
	}
	if in.ParentID != "" {
		parent, err := s.comments.GetByID(ctx, in.ParentID)
		if err != nil {
			if appErr.IsNotFound(err) {
				return nil, appErr.NotFound("parent comment not found")
			}
			return nil, err
		}
		if parent.DevItemID != in.DevItemID || parent.ParentID != "" {
			return nil, appErr.Invalid("replies must target a top level comment of the same item")
		}
	}
	now := timeutil.NowUnix()
	comment := &model.DevItemComment{
		ID:        idutil.NewID(),
		DevItemID: in.DevItemID,
		UserID:    in.UserID,
		ParentID:  in.ParentID,
		Content:   content,
		Ctime:     now,
		Mtime:     now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *DevBoardService) UpdateComment(ctx context.Context, commentID, userID, content string) (*model.DevItemComment, error) {
	content = strings.TrimSpace(content)
	if commentID == "" || content == "" {
		return nil, appErr.Invalid("commentId and content are required")
	}
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, appErr.Forbidden("only the author can edit this comment")
	}
	now := timeutil.NowUnix()
	if err := s.comments.UpdateContent(ctx, commentID, content, now); err != nil {
		return nil, err
	}
	comment.Content = content
	comment.Mtime = now
	return comment, nil
}

func (s *DevBoardService) DeleteComment(ctx context.Context, commentID, userID string, isAdmin bool) error {
	if commentID == "" {
		return appErr.Invalid("commentId is required")
	}
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID && !isAdmin {
		return appErr.Forbidden("not allowed to delete this comment")
	}
	return s.comments.Delete(ctx, commentID)
}

func (s *DevBoardService) getComment(ctx context.Context, id string) (*model.DevItemComment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if appErr.IsNotFound(err) {
		return nil, appErr.NotFound("comment not found")
	}
	return comment, err
}
