package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderRepository struct {
	items domain.OrderItemRepository[*Tx]
}

// NewOrderRepository создаёт in-memory реализацию OrderRepository.
func NewOrderRepository(items domain.OrderItemRepository[*Tx]) domain.OrderRepository[*Tx] {
	return &orderRepository{items: items}
}

func (r *orderRepository) FindByID(ctx context.Context, tx *Tx, id int64) (*domain.Order, error) {
	order, ok := tx.staged.orders[id]
	if !ok {
		return nil, nil
	}

	items, err := r.items.FindByOrderID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) CheckExistsAndLock(ctx context.Context, tx *Tx, id int64) (bool, error) {
	// Транзакция владеет всем хранилищем, отдельная блокировка строки не нужна.
	_, ok := tx.staged.orders[id]
	return ok, nil
}

func (r *orderRepository) Save(ctx context.Context, tx *Tx, order *domain.Order) (*domain.Order, error) {
	if !order.IsNew() {
		stored, ok := tx.staged.orders[order.ID]
		if !ok {
			return nil, domain.NewDataAccessError("update order", errMissingRow)
		}
		stored.Done = order.Done
		stored.UpdatedAt = order.UpdatedAt
		tx.staged.orders[order.ID] = stored

		for idx := range order.Items {
			saved, err := r.items.Save(ctx, tx, &order.Items[idx])
			if err != nil {
				return nil, err
			}
			order.Items[idx] = *saved
		}
		return order, nil
	}

	created := order.WithID(tx.staged.nextOrderID)
	tx.staged.nextOrderID++

	header := created
	header.Items = nil
	tx.staged.orders[created.ID] = header

	for idx := range created.Items {
		bound := created.Items[idx].WithOrderID(created.ID)
		saved, err := r.items.Save(ctx, tx, &bound)
		if err != nil {
			return nil, err
		}
		created.Items[idx] = *saved
	}

	return &created, nil
}

func (r *orderRepository) UpdateTimestamp(ctx context.Context, tx *Tx, id int64) error {
	order, ok := tx.staged.orders[id]
	if !ok {
		return domain.NewDataAccessError("update order timestamp", errMissingRow)
	}
	order.UpdatedAt = time.Now().UTC()
	tx.staged.orders[id] = order
	return nil
}

func (r *orderRepository) CountNonDone(ctx context.Context, tx *Tx) (int64, error) {
	var count int64
	for _, order := range tx.staged.orders {
		if !order.Done {
			count++
		}
	}
	return count, nil
}

func (r *orderRepository) DoneAllNonDoneOrdersBatched(ctx context.Context, tx *Tx, batchSize int) error {
	ids := make([]int64, 0, len(tx.staged.orders))
	for id, order := range tx.staged.orders {
		if !order.Done {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) > batchSize {
		ids = ids[:batchSize]
	}

	now := time.Now().UTC()
	for _, id := range ids {
		order := tx.staged.orders[id]
		order.Done = true
		order.UpdatedAt = now
		tx.staged.orders[id] = order
	}

	return nil
}

var _ domain.OrderRepository[*Tx] = (*orderRepository)(nil)
