package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LockMode задаёт режим блокировки строки при чтении.
type LockMode int

const (
	// LockNone — обычное чтение без блокировки.
	LockNone LockMode = iota
	// LockPessimistic — чтение с захватом блокировки строки (SELECT ... FOR UPDATE).
	// Конкурирующие транзакции сериализуются на заблокированной строке.
	LockPessimistic
)

// TransactionRunner — unit of work, обобщённый по типу транзакционного
// дескриптора Tx: открывает транзакцию, передаёт её операции,
// коммитит при успехе и откатывает при любой ошибке.
// Вложенные вызовы Run запрещены и завершаются ErrNestedTransaction.
type TransactionRunner[Tx any] interface {
	Run(ctx context.Context, op func(ctx context.Context, tx Tx) error) error
}

// OrderRepository описывает требования к хранилищу заказов.
// Все методы работают только через переданный транзакционный дескриптор;
// отсутствие записи — это nil-результат, а не ошибка.
type OrderRepository[Tx any] interface {
	// FindByID загружает заказ вместе с его позициями или возвращает nil.
	FindByID(ctx context.Context, tx Tx, id int64) (*Order, error)
	// CheckExistsAndLock захватывает блокировку строки заказа и сообщает,
	// существует ли он, не загружая агрегат целиком.
	CheckExistsAndLock(ctx context.Context, tx Tx, id int64) (bool, error)
	// Save вставляет новый заказ (вместе с позициями, проставляя им
	// сгенерированный order id) либо обновляет изменяемые колонки.
	Save(ctx context.Context, tx Tx, order *Order) (*Order, error)
	// UpdateTimestamp обновляет updated_at без загрузки агрегата.
	UpdateTimestamp(ctx context.Context, tx Tx, id int64) error
	// CountNonDone возвращает количество незавершённых заказов.
	CountNonDone(ctx context.Context, tx Tx) (int64, error)
	// DoneAllNonDoneOrdersBatched помечает завершёнными до batchSize
	// незавершённых заказов, пропуская строки, уже заблокированные
	// конкурирующими транзакциями (FOR UPDATE SKIP LOCKED).
	DoneAllNonDoneOrdersBatched(ctx context.Context, tx Tx, batchSize int) error
}

// OrderItemRepository описывает требования к хранилищу позиций заказа.
type OrderItemRepository[Tx any] interface {
	// FindByID загружает позицию, опционально блокируя её строку.
	FindByID(ctx context.Context, tx Tx, id int64, lock LockMode) (*OrderItem, error)
	// FindByOrderID загружает все позиции заказа в стабильном порядке.
	FindByOrderID(ctx context.Context, tx Tx, orderID int64) ([]OrderItem, error)
	// Save вставляет новую позицию либо обновляет count и price.
	Save(ctx context.Context, tx Tx, item *OrderItem) (*OrderItem, error)
}

// OrderEventType определяет тип события жизненного цикла заказа.
type OrderEventType string

const (
	EventTypeOrderCreated     OrderEventType = "order.created"
	EventTypeOrderItemAdded   OrderEventType = "order.item_added"
	EventTypeItemCountChanged OrderEventType = "order.item_count_changed"
	EventTypeOrdersDone       OrderEventType = "order.done_sweep"
)

// OrderEvent — операционное событие для внешнего наблюдателя
// (логгер, Kafka). Публикация не влияет на поток управления.
type OrderEvent struct {
	ID          string         `json:"id"`
	Type        OrderEventType `json:"type"`
	OrderID     int64          `json:"order_id,omitempty"`
	OrderItemID int64          `json:"order_item_id,omitempty"`
	Count       int            `json:"count,omitempty"`
	PriceMinor  int64          `json:"price_minor,omitempty"`
	OrdersDone  int64          `json:"orders_done,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewOrderEvent создаёт событие с уникальным идентификатором.
func NewOrderEvent(eventType OrderEventType) OrderEvent {
	return OrderEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// OrderEventSink публикует события жизненного цикла заказов.
// Реализация обязана быть побочным эффектом: ошибка публикации
// логируется вызывающей стороной и не прерывает use case.
type OrderEventSink interface {
	Publish(event OrderEvent) error
}
