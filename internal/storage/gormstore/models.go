package gormstore

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderModel отображает строку таблицы ordering.
// Позиции загружаются жадно через Preload("Items").
type orderModel struct {
	ID        int64            `gorm:"column:id;primaryKey"`
	Username  string           `gorm:"column:user_name"`
	Done      bool             `gorm:"column:done"`
	UpdatedAt time.Time        `gorm:"column:updated_at"`
	Items     []orderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

func (orderModel) TableName() string {
	return "ordering"
}

// orderItemModel отображает строку таблицы ordering_items.
type orderItemModel struct {
	ID         int64  `gorm:"column:id;primaryKey"`
	OrderID    int64  `gorm:"column:ordering_id"`
	Name       string `gorm:"column:item_name"`
	Count      int    `gorm:"column:item_count"`
	PriceMinor int64  `gorm:"column:item_price"`
}

func (orderItemModel) TableName() string {
	return "ordering_items"
}

func toOrderModel(order *domain.Order) orderModel {
	model := orderModel{
		ID:        order.ID,
		Username:  order.Username,
		Done:      order.Done,
		UpdatedAt: order.UpdatedAt,
	}
	for _, item := range order.Items {
		model.Items = append(model.Items, toOrderItemModel(&item))
	}
	return model
}

func toOrderItemModel(item *domain.OrderItem) orderItemModel {
	return orderItemModel{
		ID:         item.ID,
		OrderID:    item.OrderID,
		Name:       item.Name,
		Count:      item.Count,
		PriceMinor: item.PriceMinor,
	}
}

func toDomainOrder(model *orderModel) *domain.Order {
	order := &domain.Order{
		ID:        model.ID,
		Username:  model.Username,
		Done:      model.Done,
		UpdatedAt: model.UpdatedAt,
		Items:     make([]domain.OrderItem, 0, len(model.Items)),
	}
	for _, item := range model.Items {
		order.Items = append(order.Items, *toDomainOrderItem(&item))
	}
	return order
}

func toDomainOrderItem(model *orderItemModel) *domain.OrderItem {
	return &domain.OrderItem{
		ID:         model.ID,
		OrderID:    model.OrderID,
		Name:       model.Name,
		Count:      model.Count,
		PriceMinor: model.PriceMinor,
	}
}
