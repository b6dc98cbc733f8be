package repository

import (
	"context"
	"fmt"

	"cinema-ticketing/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VisitorRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type visitorRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewVisitorRepository(db database.PgxIface, log *zap.Logger) VisitorRepository {
	return &visitorRepository{
		db:  db,
		log: log.With(zap.String("repository", "visitor")),
	}
}

func (r *visitorRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM visitors WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check visitor",
			zap.Error(err),
			zap.String("visitor_id", id.String()),
		)
		return false, fmt.Errorf("check visitor %s: %w", id.String(), err)
	}
	return exists, nil
}
