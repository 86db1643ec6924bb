// Package dbutil smooths over the differences between the sqlite and
// postgres backends.
package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize adapts a gendry built query to the placeholder style of driver.
// sqlite understands "?" and "LIMIT ?,?" natively and is left untouched.
func Finalize(driver, query string, args []interface{}) (string, []interface{}) {
	if sqlx.BindType(driver) != sqlx.DOLLAR {
		return query, args
	}
	if loc := limitRegex.FindStringIndex(query); loc != nil {
		// gendry emits LIMIT offset,count; postgres wants LIMIT count OFFSET offset.
		n := strings.Count(query[:loc[0]], "?")
		if n+1 < len(args) {
			args[n], args[n+1] = args[n+1], args[n]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports whether err is a unique constraint violation.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
