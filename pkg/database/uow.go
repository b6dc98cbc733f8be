package database

import (
	"context"
	"errors"
	"fmt"

	apperrors "cinema-ticketing/pkg/errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Mutation is one step of an atomic commit. Repositories build mutations;
// only the unit of work runs them.
type Mutation func(ctx context.Context, tx pgx.Tx) error

// UnitOfWork applies a list of mutations all-or-nothing.
type UnitOfWork interface {
	Commit(ctx context.Context, mutations ...Mutation) error
}

type unitOfWork struct {
	db  PgxIface
	log *zap.Logger
}

func NewUnitOfWork(db PgxIface, log *zap.Logger) UnitOfWork {
	return &unitOfWork{
		db:  db,
		log: log.With(zap.String("component", "uow")),
	}
}

func (u *unitOfWork) Commit(ctx context.Context, mutations ...Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		u.log.Error("Failed to begin transaction", zap.Error(err))
		return Classify(fmt.Errorf("begin transaction: %w", err))
	}

	for i, m := range mutations {
		if err := m(ctx, tx); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
			u.log.Warn("Unit of work rolled back",
				zap.Error(err),
				zap.Int("step", i),
				zap.Int("steps", len(mutations)),
			)
			return Classify(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		u.log.Error("Failed to commit transaction", zap.Error(err))
		return Classify(fmt.Errorf("commit transaction: %w", err))
	}

	return nil
}

// Classify maps storage failures onto the caller-visible error kinds.
// Errors that already carry a kind pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.ExclusionViolation:
			conflict := apperrors.Conflict("conflicting write detected at commit time")
			conflict.Err = err
			return conflict.WithDetails(map[string]any{"constraint": pgErr.ConstraintName})
		}
	}

	return apperrors.Persistence("storage commit failed", err)
}
