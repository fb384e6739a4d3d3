package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// helper для создания позиции с заданным количеством и суммарной ценой.
func makeItem(t *testing.T, count int, priceMinor int64) *domain.OrderItem {
	t.Helper()

	item, err := domain.NewOrderItem("Shoes", count, priceMinor)
	if err != nil {
		t.Fatalf("new order item: %v", err)
	}
	return item
}

func TestNewOrder_Ok(t *testing.T) {
	order, err := domain.NewOrder("Alex")
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if order.ID != 0 {
		t.Fatalf("expected new order without id, got %d", order.ID)
	}
	if order.Done {
		t.Fatal("new order must not be done")
	}
	if order.UpdatedAt.IsZero() {
		t.Fatal("new order must carry updated_at")
	}
	if !order.IsNew() {
		t.Fatal("order without id must be new")
	}
}

func TestNewOrder_UsernameLength(t *testing.T) {
	cases := []struct {
		name     string
		username string
	}{
		{name: "too short", username: "A"},
		{name: "too long", username: strings.Repeat("a", 201)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := domain.NewOrder(tc.username); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNewOrderItem_Validation(t *testing.T) {
	cases := []struct {
		name       string
		itemName   string
		count      int
		priceMinor int64
	}{
		{name: "short name", itemName: "S", count: 1, priceMinor: 100},
		{name: "long name", itemName: strings.Repeat("s", 201), count: 1, priceMinor: 100},
		{name: "zero count", itemName: "Shoes", count: 0, priceMinor: 100},
		{name: "negative count", itemName: "Shoes", count: -1, priceMinor: 100},
		{name: "zero price", itemName: "Shoes", count: 1, priceMinor: 0},
		{name: "negative price", itemName: "Shoes", count: 1, priceMinor: -100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := domain.NewOrderItem(tc.itemName, tc.count, tc.priceMinor); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestOrderItemChangeCount_RecomputesPrice(t *testing.T) {
	cases := []struct {
		name      string
		newCount  int
		wantPrice int64
		changed   bool
	}{
		{name: "increase", newCount: 15, wantPrice: 2250, changed: true},
		{name: "decrease", newCount: 5, wantPrice: 750, changed: true},
		{name: "same count", newCount: 10, wantPrice: 1500, changed: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := makeItem(t, 10, 1500)

			changed, err := item.ChangeCount(tc.newCount)
			if err != nil {
				t.Fatalf("change count: %v", err)
			}
			if changed != tc.changed {
				t.Fatalf("expected changed=%v, got %v", tc.changed, changed)
			}
			if item.Count != tc.newCount {
				t.Fatalf("expected count %d, got %d", tc.newCount, item.Count)
			}
			if item.PriceMinor != tc.wantPrice {
				t.Fatalf("expected price %d, got %d", tc.wantPrice, item.PriceMinor)
			}
		})
	}
}

func TestOrderItemChangeCount_TruncatesUnitPrice(t *testing.T) {
	// 1000 / 3 усечённо = 333; 333 * 6 = 1998 — правило намеренно теряет остаток.
	item := makeItem(t, 3, 1000)

	if _, err := item.ChangeCount(6); err != nil {
		t.Fatalf("change count: %v", err)
	}
	if item.PriceMinor != 1998 {
		t.Fatalf("expected truncated price 1998, got %d", item.PriceMinor)
	}
}

func TestOrderItemChangeCount_RejectsNonPositive(t *testing.T) {
	for _, newCount := range []int{0, -1} {
		item := makeItem(t, 10, 1500)

		changed, err := item.ChangeCount(newCount)
		if !domain.IsValidation(err) {
			t.Fatalf("expected validation error for count %d, got %v", newCount, err)
		}
		if changed {
			t.Fatal("failed change must not report mutation")
		}
		if item.Count != 10 || item.PriceMinor != 1500 {
			t.Fatalf("item must stay unmutated, got count=%d price=%d", item.Count, item.PriceMinor)
		}
	}
}

func TestOrderItemChangeCount_RejectsPriceCollapse(t *testing.T) {
	// 5 / 10 усечённо = 0 за единицу: пересчёт обнулил бы цену
	// и нарушил инвариант price > 0, поэтому отклоняется целиком.
	item := makeItem(t, 10, 5)

	changed, err := item.ChangeCount(3)
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if changed {
		t.Fatal("failed change must not report mutation")
	}
	if item.Count != 10 || item.PriceMinor != 5 {
		t.Fatalf("item must stay unmutated, got count=%d price=%d", item.Count, item.PriceMinor)
	}
}

func TestValidateLength_CountsRunesNotBytes(t *testing.T) {
	// 150 кириллических символов занимают 300 байт в UTF-8;
	// граница 200 проверяется по символам.
	if _, err := domain.NewOrder(strings.Repeat("я", 150)); err != nil {
		t.Fatalf("150-rune username must be accepted: %v", err)
	}
	if _, err := domain.NewOrderItem(strings.Repeat("ё", 200), 1, 100); err != nil {
		t.Fatalf("200-rune item name must be accepted: %v", err)
	}
	if _, err := domain.NewOrder(strings.Repeat("я", 201)); !domain.IsValidation(err) {
		t.Fatalf("201-rune username must be rejected, got %v", err)
	}
}

func TestOrderMarkDone_Monotonic(t *testing.T) {
	order, err := domain.NewOrder("Alex")
	if err != nil {
		t.Fatalf("new order: %v", err)
	}

	before := order.UpdatedAt
	time.Sleep(time.Millisecond)

	order.MarkDone()
	if !order.Done {
		t.Fatal("order must be done")
	}
	firstDoneAt := order.UpdatedAt
	if !firstDoneAt.After(before) {
		t.Fatal("MarkDone must refresh updated_at")
	}

	// Повторный вызов не трогает отметку времени.
	time.Sleep(time.Millisecond)
	order.MarkDone()
	if !order.UpdatedAt.Equal(firstDoneAt) {
		t.Fatal("repeated MarkDone must not refresh updated_at")
	}
}

func TestOrderWithID_And_ItemBinding(t *testing.T) {
	order, err := domain.NewOrder("Alex")
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	item := makeItem(t, 15, 1500)
	order.AddItem(*item)

	persisted := order.WithID(42)
	if persisted.ID != 42 {
		t.Fatalf("expected order id 42, got %d", persisted.ID)
	}
	if order.ID != 0 {
		t.Fatal("WithID must not mutate the receiver")
	}

	bound := item.WithOrderID(42).WithID(7)
	if bound.OrderID != 42 || bound.ID != 7 {
		t.Fatalf("unexpected item binding: %+v", bound)
	}
	if item.ID != 0 || item.OrderID != 0 {
		t.Fatal("WithID/WithOrderID must not mutate the receiver")
	}
}

func TestOrderAddItem(t *testing.T) {
	order, err := domain.NewOrder("Alex")
	if err != nil {
		t.Fatalf("new order: %v", err)
	}

	order.AddItem(*makeItem(t, 1, 100))
	order.AddItem(*makeItem(t, 2, 200))

	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
}
