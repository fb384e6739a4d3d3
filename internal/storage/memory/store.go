// Пакет memory — in-memory реализация порта персистентности для
// локальной разработки и тестов сервиса. В отличие от простого
// map-хранилища транзакция здесь настоящая: все записи идут в
// staged-копию состояния и становятся видимыми только после commit,
// поэтому атомарность use case-ов проверяется без базы данных.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// Store хранит заказы и позиции в памяти.
type Store struct {
	mu    sync.Mutex
	state state
}

type state struct {
	orders      map[int64]domain.Order
	items       map[int64]domain.OrderItem
	nextOrderID int64
	nextItemID  int64
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		state: state{
			orders:      make(map[int64]domain.Order),
			items:       make(map[int64]domain.OrderItem),
			nextOrderID: 1,
			nextItemID:  1,
		},
	}
}

func (s state) clone() state {
	cloned := state{
		orders:      make(map[int64]domain.Order, len(s.orders)),
		items:       make(map[int64]domain.OrderItem, len(s.items)),
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
	}
	for id, order := range s.orders {
		// Позиции заказа хранятся отдельно и собираются при чтении,
		// поэтому копия заголовка без Items достаточна.
		order.Items = nil
		cloned.orders[id] = order
	}
	for id, item := range s.items {
		cloned.items[id] = item
	}
	return cloned
}

// Tx — staged-состояние одной транзакции. Дескриптор владеет
// мьютексом хранилища на всё время Run: конкурирующие транзакции
// сериализуются так же, как на блокировках строк в настоящей базе.
type Tx struct {
	staged state
}

// TxRunner выполняет операцию над staged-копией состояния и
// применяет её к хранилищу только при успешном завершении.
type TxRunner struct {
	store *Store
}

// NewTxRunner создаёт runner поверх in-memory хранилища.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

func (r *TxRunner) Run(ctx context.Context, op func(ctx context.Context, tx *Tx) error) error {
	if domain.InTransaction(ctx) {
		return domain.NewDatabaseError(domain.ErrNestedTransaction)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := &Tx{staged: r.store.state.clone()}
	if err := op(domain.MarkTransaction(ctx), tx); err != nil {
		// Откат: staged-копия просто отбрасывается.
		return translateOperationError(err)
	}

	r.store.state = tx.staged
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

var _ domain.TransactionRunner[*Tx] = (*TxRunner)(nil)
