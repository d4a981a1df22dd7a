// Package dbxtest builds sqlmock databases that accept the argument types the
// pgx driver understands natively (string slices), so repository tests can
// pass the same values production code does.
package dbxtest

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// ArrayConverter renders []string arguments as PostgreSQL array literals and
// defers everything else to driver.DefaultParameterConverter.
type ArrayConverter struct{}

func (ArrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		quoted := make([]string, len(s))
		for i, item := range s {
			quoted[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(item) + `"`
		}
		return "{" + strings.Join(quoted, ",") + "}", nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// NewMock returns a regexp-matching sqlmock database closed on test cleanup.
func NewMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(ArrayConverter{}),
	)
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
