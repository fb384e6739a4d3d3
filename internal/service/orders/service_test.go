package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

type fixture struct {
	service *orders.Service[*memory.Tx]
	runner  *memory.TxRunner
	orders  domain.OrderRepository[*memory.Tx]
	sink    *recordingSink
}

// recordingSink накапливает опубликованные события для проверок.
type recordingSink struct {
	events []domain.OrderEvent
	err    error
}

func (s *recordingSink) Publish(event domain.OrderEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// failingItemRepository пропускает первые allowed Save-ов, затем падает.
type failingItemRepository struct {
	domain.OrderItemRepository[*memory.Tx]
	allowed int
	saves   int
	induced error
}

func (r *failingItemRepository) Save(ctx context.Context, tx *memory.Tx, item *domain.OrderItem) (*domain.OrderItem, error) {
	r.saves++
	if r.saves > r.allowed {
		return nil, r.induced
	}
	return r.OrderItemRepository.Save(ctx, tx, item)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	items := memory.NewOrderItemRepository()
	orderRepo := memory.NewOrderRepository(items)
	runner := memory.NewTxRunner(store)
	sink := &recordingSink{}
	service := orders.NewServiceWithEvents[*memory.Tx](runner, orderRepo, items, sink, nil)

	return &fixture{service: service, runner: runner, orders: orderRepo, sink: sink}
}

func mustItem(t *testing.T, name string, count int, priceMinor int64) domain.OrderItem {
	t.Helper()

	item, err := domain.NewOrderItem(name, count, priceMinor)
	require.NoError(t, err)
	return *item
}

func TestCreateOrder_AssignsIdentifiersAtAllLevels(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)

	require.NotZero(t, created.ID)
	require.Len(t, created.Items, 1)
	require.NotZero(t, created.Items[0].ID)
	require.Equal(t, created.ID, created.Items[0].OrderID)
	require.False(t, created.Done)

	require.Len(t, f.sink.events, 1)
	require.Equal(t, domain.EventTypeOrderCreated, f.sink.events[0].Type)
	require.Equal(t, created.ID, f.sink.events[0].OrderID)
}

func TestCreateOrder_RejectsInvalidUsername(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), "A", nil)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Empty(t, f.sink.events)
}

func TestCreateOrder_FailedItemSaveLeavesNothingBehind(t *testing.T) {
	store := memory.NewStore()
	induced := errors.New("induced item failure")
	failing := &failingItemRepository{
		OrderItemRepository: memory.NewOrderItemRepository(),
		allowed:             1,
		induced:             induced,
	}
	orderRepo := memory.NewOrderRepository(failing)
	runner := memory.NewTxRunner(store)
	service := orders.NewServiceWithoutMetrics[*memory.Tx](runner, orderRepo, failing, nil)

	_, err := service.CreateOrder(context.Background(), "Alex", []domain.OrderItem{
		mustItem(t, "Shoes", 15, 1500),
		mustItem(t, "Socks", 2, 300),
	})
	require.ErrorIs(t, err, induced)

	// Откат обязан убрать и заказ, и первую успешно вставленную позицию.
	err = runner.Run(context.Background(), func(ctx context.Context, tx *memory.Tx) error {
		count, err := orderRepo.CountNonDone(ctx, tx)
		require.NoError(t, err)
		require.Zero(t, count)
		return nil
	})
	require.NoError(t, err)
}

func TestGetOrder_ReturnsAggregateWithItems(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)

	loaded, err := f.service.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, loaded.ID)
	require.Equal(t, "Alex", loaded.Username)
	require.Len(t, loaded.Items, 1)
	require.Equal(t, "Shoes", loaded.Items[0].Name)
}

func TestGetOrder_AbsentOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetOrder(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestAddOrderItem_BindsItemAndRefreshesOrder(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex", nil)
	require.NoError(t, err)
	createdAt := created.UpdatedAt

	saved, err := f.service.AddOrderItem(context.Background(), created.ID, mustItem(t, "Shoes", 15, 1500))
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	require.Equal(t, created.ID, saved.OrderID)

	loaded, err := f.service.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.False(t, loaded.UpdatedAt.Before(createdAt))

	last := f.sink.events[len(f.sink.events)-1]
	require.Equal(t, domain.EventTypeOrderItemAdded, last.Type)
	require.Equal(t, saved.ID, last.OrderItemID)
}

func TestAddOrderItem_AbsentOrderRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AddOrderItem(context.Background(), 404, mustItem(t, "Shoes", 15, 1500))
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	err = f.runner.Run(context.Background(), func(ctx context.Context, tx *memory.Tx) error {
		count, err := f.orders.CountNonDone(ctx, tx)
		require.NoError(t, err)
		require.Zero(t, count)
		return nil
	})
	require.NoError(t, err)
}

func TestChangeOrderItemCount_RecomputesPriceWithTruncation(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)
	itemID := created.Items[0].ID

	changed, err := f.service.ChangeOrderItemCount(context.Background(), itemID, 30)
	require.NoError(t, err)
	require.Equal(t, 30, changed.Count)
	require.Equal(t, int64(3000), changed.PriceMinor)

	loaded, err := f.service.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 30, loaded.Items[0].Count)
	require.Equal(t, int64(3000), loaded.Items[0].PriceMinor)
}

func TestChangeOrderItemCount_SameCountSkipsWrites(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)

	events := len(f.sink.events)
	item, err := f.service.ChangeOrderItemCount(context.Background(), created.Items[0].ID, 15)
	require.NoError(t, err)
	require.Equal(t, 15, item.Count)
	require.Equal(t, int64(1500), item.PriceMinor)
	// Совпадающее количество не считается изменением и не публикуется.
	require.Len(t, f.sink.events, events)
}

func TestChangeOrderItemCount_RejectsPriceCollapse(t *testing.T) {
	f := newFixture(t)

	// Цена меньше количества: усечённая цена за единицу равна нулю,
	// и пересчёт на меньшее количество обнулил бы цену позиции.
	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 10, 5)})
	require.NoError(t, err)

	_, err = f.service.ChangeOrderItemCount(context.Background(), created.Items[0].ID, 3)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))

	loaded, err := f.service.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 10, loaded.Items[0].Count)
	require.Equal(t, int64(5), loaded.Items[0].PriceMinor)
}

func TestChangeOrderItemCount_AbsentItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ChangeOrderItemCount(context.Background(), 404, 5)
	require.ErrorIs(t, err, domain.ErrOrderItemNotFound)
}

func TestChangeOrderItemCount_RejectsNonPositiveCount(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)

	_, err = f.service.ChangeOrderItemCount(context.Background(), created.Items[0].ID, 0)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))

	loaded, err := f.service.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 15, loaded.Items[0].Count)
	require.Equal(t, int64(1500), loaded.Items[0].PriceMinor)
}

func TestDoneAllOrders_CompletesExactlyTheSnapshot(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		_, err := f.service.CreateOrder(context.Background(), "Alex", nil)
		require.NoError(t, err)
	}

	done, err := f.service.DoneAllOrders(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), done)

	err = f.runner.Run(context.Background(), func(ctx context.Context, tx *memory.Tx) error {
		count, err := f.orders.CountNonDone(ctx, tx)
		require.NoError(t, err)
		require.Zero(t, count)
		return nil
	})
	require.NoError(t, err)

	last := f.sink.events[len(f.sink.events)-1]
	require.Equal(t, domain.EventTypeOrdersDone, last.Type)
	require.Equal(t, int64(5), last.OrdersDone)
}

func TestDoneAllOrders_NoOpWhenNothingPending(t *testing.T) {
	f := newFixture(t)

	done, err := f.service.DoneAllOrders(context.Background())
	require.NoError(t, err)
	require.Zero(t, done)
	require.Empty(t, f.sink.events)
}

func TestService_SinkFailureDoesNotAffectUseCase(t *testing.T) {
	store := memory.NewStore()
	items := memory.NewOrderItemRepository()
	orderRepo := memory.NewOrderRepository(items)
	runner := memory.NewTxRunner(store)
	sink := &recordingSink{err: errors.New("broker down")}
	service := orders.NewServiceWithEvents[*memory.Tx](runner, orderRepo, items, sink, nil)

	created, err := service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestDemonstrationScenario(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), "Alex",
		[]domain.OrderItem{mustItem(t, "Shoes", 15, 1500)})
	require.NoError(t, err)

	item, err := f.service.ChangeOrderItemCount(context.Background(), created.Items[0].ID, 5)
	require.NoError(t, err)
	require.Equal(t, int64(500), item.PriceMinor)

	done, err := f.service.DoneAllOrders(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), done)

	loaded, err := f.service.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, loaded.Done)
}
