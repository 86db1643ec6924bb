package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/yawiki/internal/pkg/dbutil"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

// base wraps the placeholder rewriting every repo needs before a query built
// for "?" placeholders reaches the driver.
type base struct {
	db *sqlx.DB
}

func (b base) finalize(query string, args []interface{}) (string, []interface{}) {
	return dbutil.Finalize(b.db.DriverName(), query, args)
}

func (b base) get(ctx context.Context, dst interface{}, query string, args []interface{}) error {
	query, args = b.finalize(query, args)
	if err := b.db.GetContext(ctx, dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErr.ErrNotFound
		}
		return err
	}
	return nil
}

func (b base) selectAll(ctx context.Context, dst interface{}, query string, args []interface{}) error {
	query, args = b.finalize(query, args)
	return b.db.SelectContext(ctx, dst, query, args...)
}

func (b base) exec(ctx context.Context, query string, args []interface{}) (sql.Result, error) {
	query, args = b.finalize(query, args)
	result, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return nil, appErr.ErrConflict
		}
		return nil, err
	}
	return result, nil
}

// execAffected runs query and reports ErrNotFound when no row changed.
func (b base) execAffected(ctx context.Context, query string, args []interface{}) error {
	result, err := b.exec(ctx, query, args)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
