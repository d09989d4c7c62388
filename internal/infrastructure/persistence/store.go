package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"trade_market/internal/domain"
)

const defaultQueryTimeout = 5 * time.Second

// store holds what every repository needs: the pool and a per-call deadline.
type store struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func newStore(db *sqlx.DB, queryTimeout time.Duration) store {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	return store{db: db, queryTimeout: queryTimeout}
}

func (s store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// withTx выполняет функцию в транзакции.
func (s store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Storage(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.Storage(fmt.Errorf("%w; rollback: %v", err, rbErr), "transaction failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.Storage(err, "failed to commit")
	}

	return nil
}
