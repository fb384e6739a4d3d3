package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderItemRepository struct{}

// NewOrderItemRepository создаёт raw-SQL реализацию OrderItemRepository.
func NewOrderItemRepository() domain.OrderItemRepository[*sql.Tx] {
	return &orderItemRepository{}
}

func (r *orderItemRepository) FindByID(ctx context.Context, tx *sql.Tx, id int64, lock domain.LockMode) (*domain.OrderItem, error) {
	query := `
		SELECT id, ordering_id, item_name, item_count, item_price
		FROM ordering_items
		WHERE id = $1
	`
	if lock == domain.LockPessimistic {
		query += ` FOR UPDATE`
	}

	var item domain.OrderItem
	err := tx.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.OrderID, &item.Name, &item.Count, &item.PriceMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewDataAccessError("select order item", err)
	}

	return &item, nil
}

func (r *orderItemRepository) FindByOrderID(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, ordering_id, item_name, item_count, item_price
		FROM ordering_items
		WHERE ordering_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, domain.NewDataAccessError("select order items", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Name, &item.Count, &item.PriceMinor); err != nil {
			return nil, domain.NewDataAccessError("scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDataAccessError("iterate order items", err)
	}

	return items, nil
}

func (r *orderItemRepository) Save(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) (*domain.OrderItem, error) {
	if !item.IsNew() {
		_, err := tx.ExecContext(ctx, `
			UPDATE ordering_items SET item_count = $1, item_price = $2 WHERE id = $3
		`, item.Count, item.PriceMinor, item.ID)
		if err != nil {
			return nil, domain.NewDataAccessError("update order item", err)
		}
		return item, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO ordering_items (ordering_id, item_name, item_count, item_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, item.OrderID, item.Name, item.Count, item.PriceMinor).Scan(&id)
	if err != nil {
		return nil, domain.NewDataAccessError("insert order item", err)
	}

	created := item.WithID(id)
	return &created, nil
}

var _ domain.OrderItemRepository[*sql.Tx] = (*orderItemRepository)(nil)
