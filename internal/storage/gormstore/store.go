// Пакет gormstore — ORM-реализация порта персистентности поверх GORM.
// Взаимозаменяем с raw-SQL адаптером пакета postgres: обе реализации
// работают с одной и той же схемой ordering/ordering_items.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultConnTimeout = 5 * time.Second

// Store оборачивает GORM-сессию к PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open открывает GORM-подключение и проверяет доступность базы.
// Транзакциями управляет TxRunner, поэтому автоматические
// транзакции GORM на каждую запись отключены.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap gorm connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres via gorm: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает корневую GORM-сессию.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close закрывает нижележащее подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap gorm connection: %w", err)
	}
	return sqlDB.Close()
}
