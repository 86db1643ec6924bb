package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/yawiki/internal/model"
)

var commentColumns = []string{"id", "dev_item_id", "user_id", "parent_id", "content", "ctime", "mtime"}

type CommentRepo struct {
	base
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{base{db: db}}
}

func (r *CommentRepo) Create(ctx context.Context, c *model.DevItemComment) error {
	data := map[string]interface{}{
		"id":          c.ID,
		"dev_item_id": c.DevItemID,
		"user_id":     c.UserID,
		"parent_id":   c.ParentID,
		"content":     c.Content,
		"ctime":       c.Ctime,
		"mtime":       c.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("dev_item_comments", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, sqlStr, args)
	return err
}

func (r *CommentRepo) GetByID(ctx context.Context, id string) (*model.DevItemComment, error) {
	sqlStr, args, err := builder.BuildSelect("dev_item_comments", map[string]interface{}{"id": id}, commentColumns)
	if err != nil {
		return nil, err
	}
	var c model.DevItemComment
	if err := r.get(ctx, &c, sqlStr, args); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) UpdateContent(ctx context.Context, id, content string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("dev_item_comments", map[string]interface{}{"id": id}, map[string]interface{}{
		"content": content,
		"mtime":   mtime,
	})
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}

// Delete removes the comment and its replies.
func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	return r.execAffected(ctx, "DELETE FROM dev_item_comments WHERE id = ? OR parent_id = ?", []interface{}{id, id})
}

type commentRow struct {
	model.DevItemComment
	AuthorName  string `db:"author_name"`
	AuthorIsPro bool   `db:"author_is_pro"`
}

// ListByItem returns the top level comments of itemID, newest first, each
// with its replies oldest first.
func (r *CommentRepo) ListByItem(ctx context.Context, itemID string) ([]*model.CommentView, error) {
	const query = `SELECT c.id, c.dev_item_id, c.user_id, c.parent_id, c.content, c.ctime, c.mtime,
	COALESCE(u.name, '') AS author_name, COALESCE(u.is_pro, 0) AS author_is_pro
FROM dev_item_comments c
LEFT JOIN users u ON u.id = c.user_id
WHERE c.dev_item_id = ?
ORDER BY c.ctime ASC, c.id ASC`
	rows := make([]commentRow, 0)
	if err := r.selectAll(ctx, &rows, query, []interface{}{itemID}); err != nil {
		return nil, err
	}
	top := make([]*model.CommentView, 0)
	byID := make(map[string]*model.CommentView)
	var replies []*model.CommentView
	for _, row := range rows {
		view := &model.CommentView{
			DevItemComment: row.DevItemComment,
			User:           model.PublicUser{ID: row.UserID, Name: row.AuthorName, IsPro: row.AuthorIsPro},
		}
		if row.ParentID == "" {
			top = append(top, view)
			byID[view.ID] = view
			continue
		}
		replies = append(replies, view)
	}
	for _, reply := range replies {
		if parent, ok := byID[reply.ParentID]; ok {
			parent.Replies = append(parent.Replies, reply)
		}
	}
	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}
	return top, nil
}
