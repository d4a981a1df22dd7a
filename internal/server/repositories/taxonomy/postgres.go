package taxonomy

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository serves one kind; the kind selects the table.
type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

// NewPostgresRepository panics on an unknown kind, which is a programming error.
func NewPostgresRepository(db dbx.DBTX, kind models.TaxonomyKind) *PostgresRepository {
	if !kind.Valid() {
		panic(fmt.Sprintf("taxonomy: unknown kind %q", kind))
	}
	return &PostgresRepository{db: db, table: kind.Plural()}
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.TaxonomyEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM `+r.table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.TaxonomyEntry
	for rows.Next() {
		var e models.TaxonomyEntry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, names []string) ([]models.TaxonomyEntry, error) {
	query := `INSERT INTO ` + r.table + ` (id, name) VALUES ($1, $2)`

	result := make([]models.TaxonomyEntry, 0, len(names))
	for _, name := range names {
		e := models.TaxonomyEntry{ID: uuid.NewString(), Name: name}
		if _, err := r.db.ExecContext(ctx, query, e.ID, e.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}

	return result, nil
}
