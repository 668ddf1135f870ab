package db

import (
	"errors"
	"strings"

	gosqlite "github.com/glebarez/go-sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	mysqlDuplicateEntry    = 1062
	sqliteConstraintUnique = 2067
	sqliteConstraintPK     = 1555
	sqliteConstraint       = 19
)

// IsUniqueViolation reports whether err is a unique constraint violation on any supported dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqliteConstraintUnique || code == sqliteConstraintPK {
			return true
		}
		return code&0xFF == sqliteConstraint && strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}
