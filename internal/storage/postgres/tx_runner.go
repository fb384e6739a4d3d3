package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// TxRunner выполняет операцию в одной SQL-транзакции: begin, op,
// commit при успехе, rollback при любой ошибке. Бизнес-ошибки
// (валидация, not found) пробрасываются как есть, сбои хранилища
// оборачиваются в DatabaseError.
type TxRunner struct {
	db     *sql.DB
	logger *log.Entry
}

// NewTxRunner создаёт runner поверх подключения к PostgreSQL.
func NewTxRunner(store *Store, logger *log.Entry) *TxRunner {
	if logger == nil {
		logger = log.WithField("component", "postgres-tx-runner")
	}
	return &TxRunner{db: store.DB(), logger: logger}
}

func (r *TxRunner) Run(ctx context.Context, op func(ctx context.Context, tx *sql.Tx) error) error {
	if domain.InTransaction(ctx) {
		return domain.NewDatabaseError(domain.ErrNestedTransaction)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDatabaseError(fmt.Errorf("begin tx: %w", err))
	}

	if err := op(domain.MarkTransaction(ctx), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.WithError(rbErr).Error("rollback failed")
		}
		return translateOperationError(err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	return nil
}

// translateOperationError оставляет бизнес-ошибки нетронутыми и
// оборачивает сбои доступа к данным в DatabaseError.
func translateOperationError(err error) error {
	var dbErr *domain.DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	if domain.IsDataAccess(err) {
		return domain.NewDatabaseError(err)
	}
	return err
}

var _ domain.TransactionRunner[*sql.Tx] = (*TxRunner)(nil)
