package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"gigmap/internal/models"
)

var (
	// ErrPerformanceNotFound signals that no row matched the requested id.
	ErrPerformanceNotFound = errors.New("performance not found")
	// ErrInvalidPerformance indicates the database rejected a value.
	ErrInvalidPerformance = errors.New("invalid performance")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS performances (
		id BIGSERIAL PRIMARY KEY,
		artist TEXT NOT NULL,
		type TEXT NOT NULL,
		province TEXT NOT NULL,
		city TEXT,
		venue TEXT,
		notes TEXT,
		date DATE,
		poster TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_performances_province ON performances (province)`,
	`CREATE INDEX IF NOT EXISTS idx_performances_artist ON performances (artist)`,
}

// EnsureSchema creates the performances table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const describeSchemaQuery = `
		SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage k
		             ON k.constraint_name = tc.constraint_name AND k.table_name = tc.table_name
		           WHERE tc.table_name = c.table_name
		             AND tc.constraint_type = 'PRIMARY KEY'
		             AND k.column_name = c.column_name
		       ) AS primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

// DescribeSchema lists the columns of the performances table.
func (s *Store) DescribeSchema(ctx context.Context) ([]models.SchemaColumn, error) {
	rows, err := s.db.QueryContext(ctx, describeSchemaQuery, "performances")
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}
	defer rows.Close()

	columns := []models.SchemaColumn{}
	for rows.Next() {
		var (
			col        models.SchemaColumn
			def        sql.NullString
			primaryKey bool
		)
		if err := rows.Scan(&col.Field, &col.Type, &col.Null, &def, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan schema column: %w", err)
		}
		if def.Valid {
			col.Default = &def.String
			if strings.HasPrefix(def.String, "nextval(") {
				col.Extra = "auto_increment"
			}
		}
		if primaryKey {
			col.Key = "PRI"
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema: %w", err)
	}

	return columns, nil
}

// classify maps value-level Postgres failures to ErrInvalidPerformance.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22007", "22008", "23502":
			return fmt.Errorf("%w: %s", ErrInvalidPerformance, pgErr.Message)
		}
	}
	return err
}
