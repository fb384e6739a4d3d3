// Пакет orders реализует use case-ы сервиса заказов поверх
// транзакционного порта персистентности. Сервис обобщён по типу
// транзакционного дескриптора и работает с любым адаптером хранилища.
package orders

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// batchSize — размер батча при массовом завершении заказов.
// Каждый батч выполняется в собственной короткой транзакции.
const batchSize = 100

// API — необобщённый интерфейс сервиса заказов, который потребляют
// бинарники. Конкретный тип транзакции скрыт за Service[Tx].
type API interface {
	// GetOrder возвращает заказ с позициями либо ErrOrderNotFound.
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	// CreateOrder атомарно сохраняет новый заказ вместе с позициями.
	CreateOrder(ctx context.Context, username string, items []domain.OrderItem) (*domain.Order, error)
	// AddOrderItem добавляет позицию в существующий заказ под блокировкой
	// строки заказа и обновляет его отметку времени.
	AddOrderItem(ctx context.Context, orderID int64, item domain.OrderItem) (*domain.OrderItem, error)
	// ChangeOrderItemCount меняет количество в позиции под блокировкой
	// её строки, пересчитывая цену с усечением.
	ChangeOrderItemCount(ctx context.Context, itemID int64, count int) (*domain.OrderItem, error)
	// DoneAllOrders помечает завершёнными все незавершённые заказы
	// батчами и возвращает количество заказов из начального снимка.
	DoneAllOrders(ctx context.Context) (int64, error)
}

// Service реализует API поверх репозиториев и транзакционного runner-а.
type Service[Tx any] struct {
	runner  domain.TransactionRunner[Tx]
	orders  domain.OrderRepository[Tx]
	items   domain.OrderItemRepository[Tx]
	events  domain.OrderEventSink // опциональный sink событий заказов
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// NewService создаёт сервис заказов без публикации событий.
func NewService[Tx any](
	runner domain.TransactionRunner[Tx],
	orders domain.OrderRepository[Tx],
	items domain.OrderItemRepository[Tx],
	logger *log.Entry,
) *Service[Tx] {
	return NewServiceWithEvents(runner, orders, items, nil, logger)
}

// NewServiceWithEvents создаёт сервис с публикацией событий жизненного
// цикла заказов в переданный sink.
func NewServiceWithEvents[Tx any](
	runner domain.TransactionRunner[Tx],
	orders domain.OrderRepository[Tx],
	items domain.OrderItemRepository[Tx],
	events domain.OrderEventSink,
	logger *log.Entry,
) *Service[Tx] {
	if logger == nil {
		logger = log.New().WithField("component", "orders-service")
	}
	return &Service[Tx]{
		runner:  runner,
		orders:  orders,
		items:   items,
		events:  events,
		logger:  logger,
		metrics: metrics.NewOrderMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics[Tx any](
	runner domain.TransactionRunner[Tx],
	orders domain.OrderRepository[Tx],
	items domain.OrderItemRepository[Tx],
	logger *log.Entry,
) *Service[Tx] {
	if logger == nil {
		logger = log.New().WithField("component", "orders-service")
	}
	return &Service[Tx]{
		runner: runner,
		orders: orders,
		items:  items,
		logger: logger,
	}
}

// GetOrder загружает заказ вместе с позициями.
func (s *Service[Tx]) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	defer s.observe("get_order", time.Now())

	var order *domain.Order
	err := s.runner.Run(ctx, func(ctx context.Context, tx Tx) error {
		found, err := s.orders.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if found == nil {
			if s.metrics != nil {
				s.metrics.RecordNotFound("order")
			}
			return domain.ErrOrderNotFound
		}
		order = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CreateOrder создаёт заказ вместе с позициями в одной транзакции.
// Сбой на любой позиции откатывает и заказ, и уже вставленные позиции.
func (s *Service[Tx]) CreateOrder(ctx context.Context, username string, items []domain.OrderItem) (*domain.Order, error) {
	defer s.observe("create_order", time.Now())

	order, err := domain.NewOrder(username)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		order.AddItem(item)
	}

	var created *domain.Order
	err = s.runner.Run(ctx, func(ctx context.Context, tx Tx) error {
		saved, err := s.orders.Save(ctx, tx, order)
		if err != nil {
			return err
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": created.ID,
		"username": created.Username,
		"items":    len(created.Items),
	}).Info("order created")
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}

	event := domain.NewOrderEvent(domain.EventTypeOrderCreated)
	event.OrderID = created.ID
	s.publish(event)

	return created, nil
}

// AddOrderItem добавляет позицию в существующий заказ. Строка заказа
// блокируется до вставки, отсутствующий заказ — ErrOrderNotFound.
func (s *Service[Tx]) AddOrderItem(ctx context.Context, orderID int64, item domain.OrderItem) (*domain.OrderItem, error) {
	defer s.observe("add_order_item", time.Now())

	var saved *domain.OrderItem
	err := s.runner.Run(ctx, func(ctx context.Context, tx Tx) error {
		exists, err := s.orders.CheckExistsAndLock(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !exists {
			if s.metrics != nil {
				s.metrics.RecordNotFound("order")
			}
			return domain.ErrOrderNotFound
		}

		bound := item.WithOrderID(orderID)
		saved, err = s.items.Save(ctx, tx, &bound)
		if err != nil {
			return err
		}

		return s.orders.UpdateTimestamp(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"item_id":  saved.ID,
		"name":     saved.Name,
	}).Info("order item added")
	if s.metrics != nil {
		s.metrics.RecordItemAdded()
	}

	event := domain.NewOrderEvent(domain.EventTypeOrderItemAdded)
	event.OrderID = orderID
	event.OrderItemID = saved.ID
	event.Count = saved.Count
	event.PriceMinor = saved.PriceMinor
	s.publish(event)

	return saved, nil
}

// ChangeOrderItemCount меняет количество в позиции и пересчитывает её
// цену. Цена за единицу вычисляется целочисленным делением текущей
// цены на текущее количество, остаток отбрасывается. Совпадающее
// количество не порождает записей в хранилище.
func (s *Service[Tx]) ChangeOrderItemCount(ctx context.Context, itemID int64, count int) (*domain.OrderItem, error) {
	defer s.observe("change_order_item_count", time.Now())

	var (
		item    *domain.OrderItem
		changed bool
	)
	err := s.runner.Run(ctx, func(ctx context.Context, tx Tx) error {
		found, err := s.items.FindByID(ctx, tx, itemID, domain.LockPessimistic)
		if err != nil {
			return err
		}
		if found == nil {
			if s.metrics != nil {
				s.metrics.RecordNotFound("order_item")
			}
			return domain.ErrOrderItemNotFound
		}

		changed, err = found.ChangeCount(count)
		if err != nil {
			return err
		}
		item = found
		if !changed {
			return nil
		}

		if _, err := s.items.Save(ctx, tx, found); err != nil {
			return err
		}
		return s.orders.UpdateTimestamp(ctx, tx, found.OrderID)
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return item, nil
	}

	s.logger.WithFields(log.Fields{
		"item_id":     item.ID,
		"order_id":    item.OrderID,
		"count":       item.Count,
		"price_minor": item.PriceMinor,
	}).Info("order item count changed")
	if s.metrics != nil {
		s.metrics.RecordItemCountChanged()
	}

	event := domain.NewOrderEvent(domain.EventTypeItemCountChanged)
	event.OrderID = item.OrderID
	event.OrderItemID = item.ID
	event.Count = item.Count
	event.PriceMinor = item.PriceMinor
	s.publish(event)

	return item, nil
}

// DoneAllOrders помечает завершёнными все заказы, незавершённые на
// момент начального снимка. Снимок читается в собственной транзакции,
// затем заказы закрываются батчами, каждый батч в отдельной короткой
// транзакции со skip-locked захватом строк. Заказы, созданные после
// снимка, в текущий проход не попадают.
func (s *Service[Tx]) DoneAllOrders(ctx context.Context) (int64, error) {
	defer s.observe("done_all_orders", time.Now())

	var snapshot int64
	err := s.runner.Run(ctx, func(ctx context.Context, tx Tx) error {
		count, err := s.orders.CountNonDone(ctx, tx)
		if err != nil {
			return err
		}
		snapshot = count
		return nil
	})
	if err != nil {
		return 0, err
	}

	if snapshot == 0 {
		s.logger.Info("no orders to complete")
		return 0, nil
	}

	for remaining := snapshot; remaining > 0; remaining -= int64(batchSize) {
		size := batchSize
		if remaining < int64(batchSize) {
			size = int(remaining)
		}

		err := s.runner.Run(ctx, func(ctx context.Context, tx Tx) error {
			return s.orders.DoneAllNonDoneOrdersBatched(ctx, tx, size)
		})
		if err != nil {
			return 0, err
		}
		if s.metrics != nil {
			s.metrics.RecordDoneBatch()
		}
	}

	s.logger.WithField("orders_done", snapshot).Info("all orders completed")
	if s.metrics != nil {
		s.metrics.RecordDoneSweep()
	}

	event := domain.NewOrderEvent(domain.EventTypeOrdersDone)
	event.OrdersDone = snapshot
	s.publish(event)

	return snapshot, nil
}

// publish отправляет событие в sink, если он сконфигурирован.
// Ошибка публикации логируется и не влияет на результат use case.
func (s *Service[Tx]) publish(event domain.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event); err != nil {
		s.logger.WithError(err).WithField("event_type", string(event.Type)).Warn("failed to publish order event")
	}
}

func (s *Service[Tx]) observe(useCase string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordUseCaseDuration(useCase, time.Since(start))
	}
}

var _ API = (*Service[struct{}])(nil)
