package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// duplicateField inspects a driver error and reports which unique column was
// violated. MySQL names the key in the message
// ("Duplicate entry 'x' for key 'users.idx_users_email'"), PostgreSQL in
// ConstraintName.
func duplicateField(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		msg := myErr.Message
		if i := strings.LastIndex(msg, "for key "); i >= 0 {
			msg = msg[i:]
		}
		return fieldFromConstraint(msg), true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fieldFromConstraint(pgErr.ConstraintName), true
	}

	// Dialectors configured with TranslateError lose the constraint name.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "username", true
	}

	return "", false
}

func fieldFromConstraint(s string) string {
	if strings.Contains(strings.ToLower(s), "email") {
		return "email"
	}
	return "username"
}
