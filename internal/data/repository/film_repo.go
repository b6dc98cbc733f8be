package repository

import (
	"context"
	"fmt"

	"cinema-ticketing/internal/data/entity"
	"cinema-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// FilmRepository reads the film catalog. Catalog writes happen elsewhere.
type FilmRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Film, error)
}

type filmRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewFilmRepository(db database.PgxIface, log *zap.Logger) FilmRepository {
	return &filmRepository{
		db:  db,
		log: log.With(zap.String("repository", "film")),
	}
}

func (r *filmRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Film, error) {
	query := `
		SELECT id, title, duration_in_minutes, created_at, updated_at
		FROM films
		WHERE id = $1
	`

	var film entity.Film
	err := r.db.QueryRow(ctx, query, id).Scan(
		&film.ID,
		&film.Title,
		&film.DurationInMinutes,
		&film.CreatedAt,
		&film.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find film by ID",
			zap.Error(err),
			zap.String("film_id", id.String()),
		)
		return nil, fmt.Errorf("find film %s: %w", id.String(), err)
	}

	return &film, nil
}
