package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderRepository struct {
	items domain.OrderItemRepository[*gorm.DB]
}

// NewOrderRepository создаёт GORM-реализацию OrderRepository.
// В отличие от raw-SQL адаптера позиции загружаются маппингом
// ассоциации (Preload), а вставка агрегата каскадирует на позиции.
func NewOrderRepository(items domain.OrderItemRepository[*gorm.DB]) domain.OrderRepository[*gorm.DB] {
	return &orderRepository{items: items}
}

func (r *orderRepository) FindByID(ctx context.Context, tx *gorm.DB, id int64) (*domain.Order, error) {
	var model orderModel
	err := tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewDataAccessError("select order", err)
	}
	return toDomainOrder(&model), nil
}

func (r *orderRepository) CheckExistsAndLock(ctx context.Context, tx *gorm.DB, id int64) (bool, error) {
	var model orderModel
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Take(&model, id).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, domain.NewDataAccessError("lock order", err)
}

func (r *orderRepository) Save(ctx context.Context, tx *gorm.DB, order *domain.Order) (*domain.Order, error) {
	if !order.IsNew() {
		err := tx.WithContext(ctx).
			Model(&orderModel{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"done":       order.Done,
				"updated_at": order.UpdatedAt,
			}).Error
		if err != nil {
			return nil, domain.NewDataAccessError("update order", err)
		}

		for idx := range order.Items {
			saved, err := r.items.Save(ctx, tx, &order.Items[idx])
			if err != nil {
				return nil, err
			}
			order.Items[idx] = *saved
		}
		return order, nil
	}

	// Create каскадирует на ассоциацию Items и проставляет
	// сгенерированные идентификаторы на всех уровнях.
	model := toOrderModel(order)
	if err := tx.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, domain.NewDataAccessError("insert order", err)
	}

	return toDomainOrder(&model), nil
}

func (r *orderRepository) UpdateTimestamp(ctx context.Context, tx *gorm.DB, id int64) error {
	err := tx.WithContext(ctx).
		Model(&orderModel{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
	if err != nil {
		return domain.NewDataAccessError("update order timestamp", err)
	}
	return nil
}

func (r *orderRepository) CountNonDone(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&orderModel{}).
		Where("done = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, domain.NewDataAccessError("count non done orders", err)
	}
	return count, nil
}

func (r *orderRepository) DoneAllNonDoneOrdersBatched(ctx context.Context, tx *gorm.DB, batchSize int) error {
	// Нативный запрос, как в остальных адаптерах: ORM-обёртки не
	// выражают FOR UPDATE SKIP LOCKED в batched-обновлении.
	err := tx.WithContext(ctx).Exec(`
		WITH non_done_orders AS (
			SELECT id
			FROM ordering
			WHERE done = FALSE
			FOR UPDATE SKIP LOCKED
			LIMIT ?
		)
		UPDATE ordering
		SET done = TRUE, updated_at = NOW()
		FROM non_done_orders
		WHERE ordering.id = non_done_orders.id
	`, batchSize).Error
	if err != nil {
		return domain.NewDataAccessError("done non done orders batched", err)
	}
	return nil
}

var _ domain.OrderRepository[*gorm.DB] = (*orderRepository)(nil)
