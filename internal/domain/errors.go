package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound возвращается сервисом, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderItemNotFound возвращается сервисом, если позиция заказа не найдена.
	ErrOrderItemNotFound = errors.New("order item not found")
	// ErrNestedTransaction сигнализирует о вложенном вызове TransactionRunner.Run.
	ErrNestedTransaction = errors.New("nested transaction run is not allowed")
)

// ValidationError описывает нарушение инварианта агрегата.
// Возникает до любого обращения к хранилищу и никогда не оборачивается
// в ошибки слоя персистентности.
type ValidationError struct {
	msg string
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// IsValidation проверяет, является ли ошибка нарушением инварианта.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DataAccessError оборачивает любую ошибку драйвера или ORM,
// возникшую на границе репозитория. Отсутствие записи ошибкой не считается.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError создаёт DataAccessError для операции op.
func NewDataAccessError(op string, err error) *DataAccessError {
	return &DataAccessError{Op: op, Err: err}
}

// DatabaseError оборачивает сбой транзакции: ошибку открытия,
// ошибку операции уровня хранилища или ошибку commit.
// Бизнес-ошибки (валидация, not found) через него не проходят.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database: %v", e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError создаёт DatabaseError с исходной причиной.
func NewDatabaseError(err error) *DatabaseError {
	return &DatabaseError{Err: err}
}

// IsDataAccess проверяет, является ли ошибка сбоем доступа к данным.
func IsDataAccess(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}
