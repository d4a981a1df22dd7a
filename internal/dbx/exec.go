package dbx

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/common"
)

// ExecOne runs a write that is expected to touch at least one row.
// No matching row yields common.ErrorNotFound and a unique violation yields
// common.ErrConflict; other driver errors are wrapped as "db error".
func ExecOne(ctx context.Context, db DBTX, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
