package gormstore

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// TxRunner выполняет операцию в одной GORM-транзакции.
// Контракт тот же, что у postgres.TxRunner: один дескриптор на вызов,
// commit при успехе, rollback и трансляция ошибок при сбое.
type TxRunner struct {
	db     *gorm.DB
	logger *log.Entry
}

// NewTxRunner создаёт runner поверх GORM-подключения.
func NewTxRunner(store *Store, logger *log.Entry) *TxRunner {
	if logger == nil {
		logger = log.WithField("component", "gorm-tx-runner")
	}
	return &TxRunner{db: store.DB(), logger: logger}
}

func (r *TxRunner) Run(ctx context.Context, op func(ctx context.Context, tx *gorm.DB) error) error {
	if domain.InTransaction(ctx) {
		return domain.NewDatabaseError(domain.ErrNestedTransaction)
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return domain.NewDatabaseError(fmt.Errorf("begin tx: %w", tx.Error))
	}

	if err := op(domain.MarkTransaction(ctx), tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			r.logger.WithError(rbErr).Error("rollback failed")
		}
		return translateOperationError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return domain.NewDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	return nil
}

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

var _ domain.TransactionRunner[*gorm.DB] = (*TxRunner)(nil)
