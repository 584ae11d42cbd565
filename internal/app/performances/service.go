package performances

import (
	"context"

	"github.com/rs/zerolog/log"

	"gigmap/internal/models"
)

// Store defines persistence operations for performances.
type Store interface {
	CreatePerformance(ctx context.Context, fields models.PerformanceFields, poster *string) (*models.Performance, error)
	ListPerformances(ctx context.Context) ([]*models.Performance, error)
	ListPerformancesByProvince(ctx context.Context, province string) ([]*models.Performance, error)
	ListPerformancesByArtist(ctx context.Context, artist string) ([]*models.Performance, error)
	ListArtists(ctx context.Context) ([]string, error)
	UpdatePerformance(ctx context.Context, id int64, fields models.PerformanceFields, poster *string) (*models.Performance, error)
	DeletePerformance(ctx context.Context, id int64) error
	DescribeSchema(ctx context.Context) ([]models.SchemaColumn, error)
}

// PosterRemover deletes a stored poster by its public path.
type PosterRemover interface {
	Remove(publicPath string) error
}

// Service coordinates performance workflows.
type Service interface {
	Create(ctx context.Context, fields models.PerformanceFields, poster *string) (*models.Performance, error)
	List(ctx context.Context) ([]*models.Performance, error)
	ListByProvince(ctx context.Context, province string) ([]*models.Performance, error)
	ListByArtist(ctx context.Context, artist string) ([]*models.Performance, error)
	Artists(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id int64, fields models.PerformanceFields, poster *string) (*models.Performance, error)
	Delete(ctx context.Context, id int64) error
	Schema(ctx context.Context) ([]models.SchemaColumn, error)
}

type service struct {
	store   Store
	posters PosterRemover // Optional: discard posters of failed writes
}

// New constructs a performances Service.
func New(store Store, posters PosterRemover) Service {
	return &service{
		store:   store,
		posters: posters,
	}
}

func (s *service) Create(ctx context.Context, fields models.PerformanceFields, poster *string) (*models.Performance, error) {
	if err := Validate(fields); err != nil {
		s.discard(poster)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.discard(poster)
		return nil, err
	}

	created, err := s.store.CreatePerformance(ctx, fields, poster)
	if err != nil {
		s.discard(poster)
		return nil, err
	}
	return created, nil
}

func (s *service) List(ctx context.Context) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPerformances(ctx)
}

func (s *service) ListByProvince(ctx context.Context, province string) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPerformancesByProvince(ctx, province)
}

func (s *service) ListByArtist(ctx context.Context, artist string) ([]*models.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPerformancesByArtist(ctx, artist)
}

func (s *service) Artists(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListArtists(ctx)
}

// Update rewrites every writable field; a nil poster keeps the stored one.
func (s *service) Update(ctx context.Context, id int64, fields models.PerformanceFields, poster *string) (*models.Performance, error) {
	if err := Validate(fields); err != nil {
		s.discard(poster)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.discard(poster)
		return nil, err
	}

	updated, err := s.store.UpdatePerformance(ctx, id, fields, poster)
	if err != nil {
		s.discard(poster)
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeletePerformance(ctx, id)
}

func (s *service) Schema(ctx context.Context) ([]models.SchemaColumn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.DescribeSchema(ctx)
}

// discard removes a poster stored for a write that did not happen.
func (s *service) discard(poster *string) {
	if poster == nil || s.posters == nil {
		return
	}
	if err := s.posters.Remove(*poster); err != nil {
		log.Warn().Err(err).Str("poster", *poster).Msg("failed to discard poster")
	}
}
