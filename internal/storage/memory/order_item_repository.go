package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// errMissingRow имитирует сбой хранилища при обновлении несуществующей записи.
var errMissingRow = errors.New("row does not exist")

type orderItemRepository struct{}

// NewOrderItemRepository создаёт in-memory реализацию OrderItemRepository.
func NewOrderItemRepository() domain.OrderItemRepository[*Tx] {
	return &orderItemRepository{}
}

func (r *orderItemRepository) FindByID(ctx context.Context, tx *Tx, id int64, lock domain.LockMode) (*domain.OrderItem, error) {
	item, ok := tx.staged.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *orderItemRepository) FindByOrderID(ctx context.Context, tx *Tx, orderID int64) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0)
	for _, item := range tx.staged.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *orderItemRepository) Save(ctx context.Context, tx *Tx, item *domain.OrderItem) (*domain.OrderItem, error) {
	if !item.IsNew() {
		stored, ok := tx.staged.items[item.ID]
		if !ok {
			return nil, domain.NewDataAccessError("update order item", errMissingRow)
		}
		stored.Count = item.Count
		stored.PriceMinor = item.PriceMinor
		tx.staged.items[item.ID] = stored
		return item, nil
	}

	created := item.WithID(tx.staged.nextItemID)
	tx.staged.nextItemID++
	tx.staged.items[created.ID] = created

	return &created, nil
}

var _ domain.OrderItemRepository[*Tx] = (*orderItemRepository)(nil)
