package dbx

import (
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// NullString maps "" to SQL NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTime maps the zero time to SQL NULL.
func NullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// NullTimePtr maps a nil pointer to SQL NULL.
func NullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// StringArray returns a scanner that decodes a PostgreSQL text[] column
// into dst. NULL decodes to a nil slice.
func StringArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}
