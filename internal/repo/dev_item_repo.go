package repo

import (
	"context"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/yawiki/internal/model"
)

var devItemColumns = []string{"id", "title", "details", "type", "status", "views", "admin_notes", "completed_at", "ctime", "mtime"}

const devItemStatSelect = `SELECT d.id, d.title, d.details, d.type, d.status, d.views, d.admin_notes, d.completed_at, d.ctime, d.mtime,
	(SELECT COUNT(*) FROM dev_item_votes v WHERE v.dev_item_id = d.id) AS vote_count,
	(SELECT COUNT(*) FROM dev_item_comments c WHERE c.dev_item_id = d.id) AS comment_count
FROM dev_items d`

type DevItemRepo struct {
	base
}

func NewDevItemRepo(db *sqlx.DB) *DevItemRepo {
	return &DevItemRepo{base{db: db}}
}

func (r *DevItemRepo) Create(ctx context.Context, item *model.DevItem) error {
	data := map[string]interface{}{
		"id":           item.ID,
		"title":        item.Title,
		"details":      item.Details,
		"type":         item.Type,
		"status":       item.Status,
		"views":        item.Views,
		"admin_notes":  item.AdminNotes,
		"completed_at": item.CompletedAt,
		"ctime":        item.Ctime,
		"mtime":        item.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("dev_items", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, sqlStr, args)
	return err
}

func (r *DevItemRepo) GetByID(ctx context.Context, id string) (*model.DevItem, error) {
	sqlStr, args, err := builder.BuildSelect("dev_items", map[string]interface{}{"id": id}, devItemColumns)
	if err != nil {
		return nil, err
	}
	var item model.DevItem
	if err := r.get(ctx, &item, sqlStr, args); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *DevItemRepo) GetStat(ctx context.Context, id string) (*model.DevItemStat, error) {
	var stat model.DevItemStat
	if err := r.get(ctx, &stat, devItemStatSelect+" WHERE d.id = ?", []interface{}{id}); err != nil {
		return nil, err
	}
	return &stat, nil
}

func devItemWhere(f model.DevItemFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Search != "" {
		conds = append(conds, "(d.title LIKE ? OR d.details LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	switch f.Status {
	case "", "all":
	case "active":
		conds = append(conds, "d.status <> ?")
		args = append(args, model.DevItemStatusDone)
	default:
		conds = append(conds, "d.status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" && f.Type != "all" {
		conds = append(conds, "d.type = ?")
		args = append(args, f.Type)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func devItemOrder(sort string) string {
	switch sort {
	case "views":
		return " ORDER BY d.views DESC, d.ctime DESC"
	case "date":
		return " ORDER BY d.ctime DESC"
	default:
		return " ORDER BY vote_count DESC, d.ctime DESC"
	}
}

// List returns one page of items matching f and the total number of matches.
func (r *DevItemRepo) List(ctx context.Context, f model.DevItemFilter) ([]*model.DevItemStat, int64, error) {
	where, args := devItemWhere(f)
	var total int64
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM dev_items d"+where, args); err != nil {
		return nil, 0, err
	}
	items := make([]*model.DevItemStat, 0)
	query := devItemStatSelect + where + devItemOrder(f.Sort) + " LIMIT ? OFFSET ?"
	pageArgs := append(append([]interface{}{}, args...), f.Limit, f.Offset)
	if err := r.selectAll(ctx, &items, query, pageArgs); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *DevItemRepo) IncrementViews(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("UPDATE dev_items SET views = views + 1 WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, query, args)
	return err
}

// Update changes status and admin notes. An empty status or nil notes leave
// the column as is; a non-nil empty note clears it.
func (r *DevItemRepo) Update(ctx context.Context, id, status string, adminNotes *string, completedAt, mtime int64) error {
	update := map[string]interface{}{"mtime": mtime}
	if status != "" {
		update["status"] = status
	}
	if adminNotes != nil {
		update["admin_notes"] = *adminNotes
	}
	if completedAt > 0 {
		update["completed_at"] = completedAt
	}
	sqlStr, args, err := builder.BuildUpdate("dev_items", map[string]interface{}{"id": id}, update)
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}
