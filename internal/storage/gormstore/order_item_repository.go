package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderItemRepository struct{}

// NewOrderItemRepository создаёт GORM-реализацию OrderItemRepository.
func NewOrderItemRepository() domain.OrderItemRepository[*gorm.DB] {
	return &orderItemRepository{}
}

func (r *orderItemRepository) FindByID(ctx context.Context, tx *gorm.DB, id int64, lock domain.LockMode) (*domain.OrderItem, error) {
	session := tx.WithContext(ctx)
	if lock == domain.LockPessimistic {
		session = session.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model orderItemModel
	if err := session.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewDataAccessError("select order item", err)
	}

	return toDomainOrderItem(&model), nil
}

func (r *orderItemRepository) FindByOrderID(ctx context.Context, tx *gorm.DB, orderID int64) ([]domain.OrderItem, error) {
	var models []orderItemModel
	err := tx.WithContext(ctx).
		Where("ordering_id = ?", orderID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, domain.NewDataAccessError("select order items", err)
	}

	items := make([]domain.OrderItem, 0, len(models))
	for idx := range models {
		items = append(items, *toDomainOrderItem(&models[idx]))
	}
	return items, nil
}

func (r *orderItemRepository) Save(ctx context.Context, tx *gorm.DB, item *domain.OrderItem) (*domain.OrderItem, error) {
	if !item.IsNew() {
		err := tx.WithContext(ctx).
			Model(&orderItemModel{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"item_count": item.Count,
				"item_price": item.PriceMinor,
			}).Error
		if err != nil {
			return nil, domain.NewDataAccessError("update order item", err)
		}
		return item, nil
	}

	model := toOrderItemModel(item)
	if err := tx.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, domain.NewDataAccessError("insert order item", err)
	}

	return toDomainOrderItem(&model), nil
}

var _ domain.OrderItemRepository[*gorm.DB] = (*orderItemRepository)(nil)
