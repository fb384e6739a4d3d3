package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderRepository struct {
	items domain.OrderItemRepository[*sql.Tx]
}

// NewOrderRepository создаёт raw-SQL реализацию OrderRepository.
// Позиции заказа загружаются явным запросом через items-репозиторий.
func NewOrderRepository(items domain.OrderItemRepository[*sql.Tx]) domain.OrderRepository[*sql.Tx] {
	return &orderRepository{items: items}
}

func (r *orderRepository) FindByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error) {
	var order domain.Order
	err := tx.QueryRowContext(ctx, `
		SELECT id, user_name, done, updated_at
		FROM ordering
		WHERE id = $1
	`, id).Scan(&order.ID, &order.Username, &order.Done, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewDataAccessError("select order", err)
	}

	items, err := r.items.FindByOrderID(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) CheckExistsAndLock(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	// Захватываем блокировку строки заказа, не вытаскивая агрегат:
	// конкурирующие мутации дочерних записей сериализуются на родителе.
	var locked int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM ordering WHERE id = $1 FOR UPDATE
	`, id).Scan(&locked)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, domain.NewDataAccessError("lock order", err)
}

func (r *orderRepository) Save(ctx context.Context, tx *sql.Tx, order *domain.Order) (*domain.Order, error) {
	if !order.IsNew() {
		if err := r.update(ctx, tx, order); err != nil {
			return nil, err
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

	created, err := r.insert(ctx, tx, order)
	if err != nil {
		return nil, err
	}

	for idx := range created.Items {
		bound := created.Items[idx].WithOrderID(created.ID)
		saved, err := r.items.Save(ctx, tx, &bound)
		if err != nil {
			return nil, err
		}
		created.Items[idx] = *saved
	}

	return created, nil
}

func (r *orderRepository) UpdateTimestamp(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ordering SET updated_at = $1 WHERE id = $2
	`, time.Now().UTC(), id)
	if err != nil {
		return domain.NewDataAccessError("update order timestamp", err)
	}
	return nil
}

func (r *orderRepository) CountNonDone(ctx context.Context, tx *sql.Tx) (int64, error) {
	var count int64
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(id) FROM ordering WHERE done = FALSE
	`).Scan(&count)
	if err != nil {
		return 0, domain.NewDataAccessError("count non done orders", err)
	}
	return count, nil
}

func (r *orderRepository) DoneAllNonDoneOrdersBatched(ctx context.Context, tx *sql.Tx, batchSize int) error {
	// SKIP LOCKED: строки, захваченные конкурентами, откладываются
	// до следующей итерации вместо ожидания их блокировок.
	_, err := tx.ExecContext(ctx, `
		WITH non_done_orders AS (
			SELECT id
			FROM ordering
			WHERE done = FALSE
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		UPDATE ordering
		SET done = TRUE, updated_at = NOW()
		FROM non_done_orders
		WHERE ordering.id = non_done_orders.id
	`, batchSize)
	if err != nil {
		return domain.NewDataAccessError("done non done orders batched", err)
	}
	return nil
}

func (r *orderRepository) insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (*domain.Order, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO ordering (user_name, done, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, order.Username, order.Done, order.UpdatedAt).Scan(&id)
	if err != nil {
		return nil, domain.NewDataAccessError("insert order", err)
	}

	created := order.WithID(id)
	return &created, nil
}

func (r *orderRepository) update(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ordering SET done = $1, updated_at = $2 WHERE id = $3
	`, order.Done, order.UpdatedAt, order.ID)
	if err != nil {
		return domain.NewDataAccessError("update order", err)
	}
	return nil
}

var _ domain.OrderRepository[*sql.Tx] = (*orderRepository)(nil)
