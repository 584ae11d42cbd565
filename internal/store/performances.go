package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gigmap/internal/models"
)

// performanceColumns renders dates the way clients expect them.
const performanceColumns = `id, artist, type, province, city, venue, notes, ` +
	`to_char(date, 'YYYY-MM-DD') AS date, poster, ` +
	`to_char(created_at, 'YYYY-MM-DD HH24:MI:SS') AS created_at`

const (
	insertPerformanceQuery = `INSERT INTO performances (artist, type, province, city, venue, notes, date, poster) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + performanceColumns

	listPerformancesQuery = `SELECT ` + performanceColumns + ` FROM performances ` +
		`ORDER BY created_at DESC, id DESC`

	listByProvinceQuery = `SELECT ` + performanceColumns + ` FROM performances ` +
		`WHERE province = $1 ORDER BY created_at DESC, id DESC`

	listByArtistQuery = `SELECT ` + performanceColumns + ` FROM performances ` +
		`WHERE artist = $1 ORDER BY date DESC NULLS LAST, created_at DESC`

	listArtistsQuery = `SELECT DISTINCT artist FROM performances ORDER BY artist`

	deletePerformanceQuery = `DELETE FROM performances WHERE id = $1`
)

var performanceUpdates = UpdateBuilder{Table: "performances", Returning: performanceColumns}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerformance(row rowScanner) (*models.Performance, error) {
	var p models.Performance
	err := row.Scan(
		&p.ID, &p.Artist, &p.Type, &p.Province, &p.City, &p.Venue, &p.Notes,
		&p.Date, &p.Poster, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePerformance inserts a new performance. id and created_at are assigned
// by the database.
func (s *Store) CreatePerformance(ctx context.Context, fields models.PerformanceFields, poster *string) (*models.Performance, error) {
	row := s.db.QueryRowContext(ctx, insertPerformanceQuery,
		fields.Artist, fields.Type, fields.Province, fields.City, fields.Venue,
		fields.Notes, fields.Date, poster,
	)

	p, err := scanPerformance(row)
	if err != nil {
		return nil, fmt.Errorf("insert performance: %w", classify(err))
	}
	return p, nil
}

// ListPerformances returns every performance, newest first.
func (s *Store) ListPerformances(ctx context.Context) ([]*models.Performance, error) {
	return s.queryPerformances(ctx, listPerformancesQuery)
}

// ListPerformancesByProvince returns performances in the given province, newest first.
func (s *Store) ListPerformancesByProvince(ctx context.Context, province string) ([]*models.Performance, error) {
	return s.queryPerformances(ctx, listByProvinceQuery, province)
}

// ListPerformancesByArtist returns an artist's performances by show date, latest first.
func (s *Store) ListPerformancesByArtist(ctx context.Context, artist string) ([]*models.Performance, error) {
	return s.queryPerformances(ctx, listByArtistQuery, artist)
}

func (s *Store) queryPerformances(ctx context.Context, query string, args ...any) ([]*models.Performance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select performances: %w", err)
	}
	defer rows.Close()

	performances := []*models.Performance{}
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		performances = append(performances, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performances: %w", err)
	}

	return performances, nil
}

// ListArtists returns the distinct artist names in alphabetical order.
func (s *Store) ListArtists(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listArtistsQuery)
	if err != nil {
		return nil, fmt.Errorf("select artists: %w", err)
	}
	defer rows.Close()

	artists := []string{}
	for rows.Next() {
		var artist string
		if err := rows.Scan(&artist); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}

	return artists, nil
}

// UpdatePerformance overwrites every client-writable column of the row. The
// poster is replaced only when a new one is given.
func (s *Store) UpdatePerformance(ctx context.Context, id int64, fields models.PerformanceFields, poster *string) (*models.Performance, error) {
	query, args := performanceUpdates.Build(id, fields, poster)

	p, err := scanPerformance(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPerformanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update performance: %w", classify(err))
	}
	return p, nil
}

// DeletePerformance removes a performance. Its poster file is left on disk.
func (s *Store) DeletePerformance(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, deletePerformanceQuery, id)
	if err != nil {
		return fmt.Errorf("delete performance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete performance: %w", err)
	}
	if rows == 0 {
		return ErrPerformanceNotFound
	}

	return nil
}
