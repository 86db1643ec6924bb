package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/yawiki/internal/model"
)

var userColumns = []string{"id", "email", "name", "password_hash", "role", "is_pro", "avatar", "last_login", "ctime", "mtime"}

type UserRepo struct {
	base
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{base{db: db}}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
		"is_pro":        boolInt(user.IsPro),
		"avatar":        user.Avatar,
		"last_login":    user.LastLogin,
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, sqlStr, args)
	return err
}

func (r *UserRepo) getBy(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := r.get(ctx, &user, sqlStr, args); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getBy(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.get(ctx, &total, "SELECT COUNT(*) FROM users", nil); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *UserRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("users", where, update)
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}

func (r *UserRepo) UpdateName(ctx context.Context, userID, name string, mtime int64) error {
	return r.update(ctx, map[string]interface{}{"id": userID}, map[string]interface{}{"name": name, "mtime": mtime})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string, mtime int64) error {
	return r.update(ctx, map[string]interface{}{"id": userID}, map[string]interface{}{"password_hash": passwordHash, "mtime": mtime})
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, userID, avatar string, mtime int64) error {
	return r.update(ctx, map[string]interface{}{"id": userID}, map[string]interface{}{"avatar": avatar, "mtime": mtime})
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID string, lastLogin int64) error {
	return r.update(ctx, map[string]interface{}{"id": userID}, map[string]interface{}{"last_login": lastLogin})
}

func (r *UserRepo) SetProByEmail(ctx context.Context, email string, mtime int64) error {
	return r.update(ctx, map[string]interface{}{"email": email}, map[string]interface{}{"is_pro": 1, "mtime": mtime})
}
