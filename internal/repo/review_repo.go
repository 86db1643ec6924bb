package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/yawiki/internal/model"
)

var reviewColumns = []string{"id", "user_id", "rating", "review", "ctime", "mtime"}

const reviewViewSelect = `SELECT r.id, r.user_id, r.rating, r.review, r.ctime, r.mtime,
	COALESCE(u.name, '') AS author_name, COALESCE(u.avatar, '') AS author_avatar, COALESCE(u.is_pro, 0) AS author_is_pro
FROM user_reviews r
LEFT JOIN users u ON u.id = r.user_id`

type ReviewRepo struct {
	base
}

func NewReviewRepo(db *sqlx.DB) *ReviewRepo {
	return &ReviewRepo{base{db: db}}
}

func (r *ReviewRepo) Create(ctx context.Context, review *model.UserReview) error {
	data := map[string]interface{}{
		"id":      review.ID,
		"user_id": review.UserID,
		"rating":  review.Rating,
		"review":  review.Review,
		"ctime":   review.Ctime,
		"mtime":   review.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("user_reviews", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, sqlStr, args)
	return err
}

func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*model.UserReview, error) {
	sqlStr, args, err := builder.BuildSelect("user_reviews", map[string]interface{}{"id": id}, reviewColumns)
	if err != nil {
		return nil, err
	}
	var review model.UserReview
	if err := r.get(ctx, &review, sqlStr, args); err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepo) Update(ctx context.Context, id string, rating int, text string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("user_reviews", map[string]interface{}{"id": id}, map[string]interface{}{
		"rating": rating,
		"review": text,
		"mtime":  mtime,
	})
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}

type reviewRow struct {
	model.UserReview
	AuthorName   string `db:"author_name"`
	AuthorAvatar string `db:"author_avatar"`
	AuthorIsPro  bool   `db:"author_is_pro"`
}

func (row reviewRow) view() *model.ReviewView {
	return &model.ReviewView{
		UserReview: row.UserReview,
		User:       model.PublicUser{Name: row.AuthorName, Avatar: row.AuthorAvatar, IsPro: row.AuthorIsPro},
	}
}

func (r *ReviewRepo) GetByUserID(ctx context.Context, userID string) (*model.ReviewView, error) {
	var row reviewRow
	if err := r.get(ctx, &row, reviewViewSelect+" WHERE r.user_id = ?", []interface{}{userID}); err != nil {
		return nil, err
	}
	return row.view(), nil
}

func (r *ReviewRepo) Random(ctx context.Context, limit int) ([]*model.ReviewView, error) {
	rows := make([]reviewRow, 0)
	if err := r.selectAll(ctx, &rows, reviewViewSelect+" ORDER BY RANDOM() LIMIT ?", []interface{}{limit}); err != nil {
		return nil, err
	}
	out := make([]*model.ReviewView, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.view())
	}
	return out, nil
}

// Stats returns the average rating and the number of reviews.
func (r *ReviewRepo) Stats(ctx context.Context) (float64, int64, error) {
	var stats struct {
		Average sql.NullFloat64 `db:"average"`
		Total   int64           `db:"total"`
	}
	if err := r.get(ctx, &stats, "SELECT AVG(rating) AS average, COUNT(*) AS total FROM user_reviews", nil); err != nil {
		return 0, 0, err
	}
	return stats.Average.Float64, stats.Total, nil
}
