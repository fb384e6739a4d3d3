package domain

import (
	"time"
	"unicode/utf8"
)

const (
	// Минимальная и максимальная длина имени пользователя и названия позиции.
	minNameLength = 2
	maxNameLength = 200
)

// Order агрегирует заголовок заказа и его позиции.
// Нулевой ID означает, что заказ ещё не сохранён в хранилище.
type Order struct {
	ID        int64
	Username  string
	Done      bool
	UpdatedAt time.Time
	Items     []OrderItem
}

// OrderItem представляет одну позицию заказа.
// Цена хранится в минимальных денежных единицах и является
// суммарной стоимостью всех Count единиц.
type OrderItem struct {
	ID         int64
	OrderID    int64
	Name       string
	Count      int
	PriceMinor int64
}

// NewOrder создаёт новый (ещё не сохранённый) заказ.
func NewOrder(username string) (*Order, error) {
	if err := validateLength("order username", username); err != nil {
		return nil, err
	}
	return &Order{
		Username:  username,
		Done:      false,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// NewOrderItem создаёт новую (ещё не привязанную к заказу) позицию.
func NewOrderItem(name string, count int, priceMinor int64) (*OrderItem, error) {
	if err := validateLength("order item name", name); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, newValidationError("order item count must be greater than 0, but %d given", count)
	}
	if priceMinor <= 0 {
		return nil, newValidationError("order item price must be greater than 0, but %d given", priceMinor)
	}
	return &OrderItem{
		Name:       name,
		Count:      count,
		PriceMinor: priceMinor,
	}, nil
}

// WithID возвращает копию заказа с присвоенным хранилищем идентификатором.
func (o Order) WithID(id int64) Order {
	o.ID = id
	return o
}

// AddItem добавляет позицию в заказ. Побочных эффектов в хранилище нет.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
}

// MarkDone переводит заказ в состояние done и обновляет updated_at.
// Повторный вызов на уже завершённом заказе ничего не меняет,
// чтобы updated_at отражал последнюю содержательную мутацию.
func (o *Order) MarkDone() {
	if o.Done {
		return
	}
	o.Done = true
	o.UpdatedAt = time.Now().UTC()
}

// IsNew сообщает, сохранялся ли заказ хотя бы один раз.
func (o *Order) IsNew() bool {
	return o.ID == 0
}

// WithID возвращает копию позиции с присвоенным идентификатором.
func (i OrderItem) WithID(id int64) OrderItem {
	i.ID = id
	return i
}

// WithOrderID возвращает копию позиции, привязанную к заказу.
func (i OrderItem) WithOrderID(orderID int64) OrderItem {
	i.OrderID = orderID
	return i
}

// IsNew сообщает, сохранялась ли позиция хотя бы один раз.
func (i *OrderItem) IsNew() bool {
	return i.ID == 0
}

// ChangeCount заменяет количество единиц и пересчитывает суммарную цену
// из цены за единицу, усечённой вниз: unit = price / oldCount (целочисленно),
// newPrice = unit * newCount. Правило намеренно теряет точность при
// повторных изменениях: канонической цены за единицу в системе нет.
// Пересчёт, обнуляющий цену, отклоняется без мутации позиции.
// Возвращает false, если новое количество совпадает с текущим и запись
// не изменилась.
func (i *OrderItem) ChangeCount(newCount int) (bool, error) {
	if newCount <= 0 {
		return false, newValidationError("order item count must be greater than 0, but %d given", newCount)
	}
	if newCount == i.Count {
		return false, nil
	}

	unitPriceMinor := i.PriceMinor / int64(i.Count)
	newPriceMinor := unitPriceMinor * int64(newCount)
	if newPriceMinor <= 0 {
		// Усечение съело всю цену: инвариант price > 0 важнее пересчёта.
		return false, newValidationError("order item price must be greater than 0, but %d given", newPriceMinor)
	}
	i.PriceMinor = newPriceMinor
	i.Count = newCount

	return true, nil
}

// validateLength проверяет длину в символах, а не в байтах:
// кириллическое имя в UTF-8 занимает вдвое больше байт, чем символов.
func validateLength(what, value string) error {
	length := utf8.RuneCountInString(value)
	if length < minNameLength {
		return newValidationError("%s length must be greater than %d, but %d given", what, minNameLength, length)
	}
	if length > maxNameLength {
		return newValidationError("%s length must be less than %d, but %d given", what, maxNameLength, length)
	}
	return nil
}
