package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"gigmap/internal/models"
)

var performanceRowColumns = []string{
	"id", "artist", "type", "province", "city", "venue", "notes", "date", "poster", "created_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db), mock
}

func TestCreatePerformanceWithoutPoster(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertPerformanceQuery)).
		WithArgs("Band A", "Concert", "Beijing", nil, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).
			AddRow(int64(1), "Band A", "Concert", "Beijing", nil, nil, nil, nil, nil, "2024-05-01 20:00:00"))

	got, err := s.CreatePerformance(context.Background(), models.PerformanceFields{
		Artist:   "Band A",
		Type:     "Concert",
		Province: "Beijing",
	}, nil)
	if err != nil {
		t.Fatalf("CreatePerformance error: %v", err)
	}

	if got.ID != 1 || got.CreatedAt != "2024-05-01 20:00:00" {
		t.Fatalf("unexpected generated fields: %#v", got)
	}
	if got.Poster != nil || got.City != nil {
		t.Fatalf("expected null optional fields, got poster=%v city=%v", got.Poster, got.City)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePerformanceWithPoster(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertPerformanceQuery)).
		WithArgs("Band A", "Concert", "Beijing", "Beijing", "Workers Stadium", nil, "2024-06-01", "/api/uploads/1-2.jpg").
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).
			AddRow(int64(2), "Band A", "Concert", "Beijing", "Beijing", "Workers Stadium", nil, "2024-06-01", "/api/uploads/1-2.jpg", "2024-05-01 20:00:00"))

	got, err := s.CreatePerformance(context.Background(), models.PerformanceFields{
		Artist:   "Band A",
		Type:     "Concert",
		Province: "Beijing",
		City:     strPtr("Beijing"),
		Venue:    strPtr("Workers Stadium"),
		Date:     strPtr("2024-06-01"),
	}, strPtr("/api/uploads/1-2.jpg"))
	if err != nil {
		t.Fatalf("CreatePerformance error: %v", err)
	}

	if got.Poster == nil || *got.Poster != "/api/uploads/1-2.jpg" {
		t.Fatalf("unexpected poster: %v", got.Poster)
	}
	if got.Date == nil || *got.Date != "2024-06-01" {
		t.Fatalf("unexpected date: %v", got.Date)
	}
}

func TestCreatePerformanceRejectedValue(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertPerformanceQuery)).
		WillReturnError(&pgconn.PgError{Code: "22007", Message: "invalid input syntax for type date"})

	_, err := s.CreatePerformance(context.Background(), models.PerformanceFields{
		Artist: "A", Type: "T", Province: "P", Date: strPtr("soon"),
	}, nil)
	if !errors.Is(err, ErrInvalidPerformance) {
		t.Fatalf("expected ErrInvalidPerformance, got %v", err)
	}
}

func TestListPerformances(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(listPerformancesQuery)).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).
			AddRow(int64(2), "Band B", "Festival", "Shanghai", nil, nil, nil, nil, nil, "2024-05-02 10:00:00").
			AddRow(int64(1), "Band A", "Concert", "Beijing", nil, nil, nil, nil, nil, "2024-05-01 10:00:00"))

	got, err := s.ListPerformances(context.Background())
	if err != nil {
		t.Fatalf("ListPerformances error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("unexpected performances: %#v", got)
	}
}

func TestListPerformancesByProvinceEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(listByProvinceQuery)).
		WithArgs("Tibet").
		WillReturnRows(sqlmock.NewRows(performanceRowColumns))

	got, err := s.ListPerformancesByProvince(context.Background(), "Tibet")
	if err != nil {
		t.Fatalf("ListPerformancesByProvince error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestListPerformancesByArtist(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(listByArtistQuery)).
		WithArgs("Band A").
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).
			AddRow(int64(3), "Band A", "Concert", "Beijing", nil, nil, nil, "2024-09-01", nil, "2024-05-01 10:00:00"))

	got, err := s.ListPerformancesByArtist(context.Background(), "Band A")
	if err != nil {
		t.Fatalf("ListPerformancesByArtist error: %v", err)
	}
	if len(got) != 1 || got[0].Artist != "Band A" {
		t.Fatalf("unexpected performances: %#v", got)
	}
}

func TestListPerformancesQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(listPerformancesQuery)).
		WillReturnError(errors.New("connection reset"))

	if _, err := s.ListPerformances(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListArtists(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(listArtistsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"artist"}).AddRow("Band A").AddRow("Band B"))

	got, err := s.ListArtists(context.Background())
	if err != nil {
		t.Fatalf("ListArtists error: %v", err)
	}
	if len(got) != 2 || got[0] != "Band A" || got[1] != "Band B" {
		t.Fatalf("unexpected artists: %v", got)
	}
}

func TestUpdatePerformanceKeepsPoster(t *testing.T) {
	s, mock := newMockStore(t)

	query, _ := performanceUpdates.Build(5, models.PerformanceFields{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("Band A", "Concert", "Beijing", nil, nil, nil, nil, int64(5)).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).
			AddRow(int64(5), "Band A", "Concert", "Beijing", nil, nil, nil, nil, "/api/uploads/old.png", "2024-05-01 10:00:00"))

	got, err := s.UpdatePerformance(context.Background(), 5, models.PerformanceFields{
		Artist: "Band A", Type: "Concert", Province: "Beijing",
	}, nil)
	if err != nil {
		t.Fatalf("UpdatePerformance error: %v", err)
	}
	if got.Poster == nil || *got.Poster != "/api/uploads/old.png" {
		t.Fatalf("expected previous poster, got %v", got.Poster)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdatePerformanceReplacesPoster(t *testing.T) {
	s, mock := newMockStore(t)

	poster := "/api/uploads/new.png"
	query, _ := performanceUpdates.Build(5, models.PerformanceFields{}, &poster)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("Band A", "Concert", "Beijing", nil, nil, nil, nil, poster, int64(5)).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns).
			AddRow(int64(5), "Band A", "Concert", "Beijing", nil, nil, nil, nil, poster, "2024-05-01 10:00:00"))

	got, err := s.UpdatePerformance(context.Background(), 5, models.PerformanceFields{
		Artist: "Band A", Type: "Concert", Province: "Beijing",
	}, &poster)
	if err != nil {
		t.Fatalf("UpdatePerformance error: %v", err)
	}
	if got.Poster == nil || *got.Poster != poster {
		t.Fatalf("expected new poster, got %v", got.Poster)
	}
}

func TestUpdatePerformanceNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	query, _ := performanceUpdates.Build(999, models.PerformanceFields{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(sqlmock.NewRows(performanceRowColumns))

	_, err := s.UpdatePerformance(context.Background(), 999, models.PerformanceFields{
		Artist: "Band A", Type: "Concert", Province: "Beijing",
	}, nil)
	if !errors.Is(err, ErrPerformanceNotFound) {
		t.Fatalf("expected ErrPerformanceNotFound, got %v", err)
	}
}

func TestDeletePerformanceTwice(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(deletePerformanceQuery)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deletePerformanceQuery)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeletePerformance(context.Background(), 4); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeletePerformance(context.Background(), 4); !errors.Is(err, ErrPerformanceNotFound) {
		t.Fatalf("expected ErrPerformanceNotFound on second delete, got %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)

	for _, stmt := range schemaStatements {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(driver.ResultNoRows)
	}

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDescribeSchema(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(describeSchemaQuery)).
		WithArgs("performances").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "primary_key"}).
			AddRow("id", "bigint", "NO", "nextval('performances_id_seq'::regclass)", true).
			AddRow("artist", "text", "NO", nil, false))

	got, err := s.DescribeSchema(context.Background())
	if err != nil {
		t.Fatalf("DescribeSchema error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(got))
	}
	if got[0].Key != "PRI" || got[0].Extra != "auto_increment" {
		t.Fatalf("unexpected id column: %#v", got[0])
	}
	if got[1].Default != nil || got[1].Key != "" {
		t.Fatalf("unexpected artist column: %#v", got[1])
	}
}
