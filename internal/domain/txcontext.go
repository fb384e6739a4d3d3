package domain

import "context"

type txMarkerKey struct{}

// MarkTransaction помечает контекст как выполняющийся внутри Run.
// Используется реализациями TransactionRunner для fail-fast отказа
// от вложенных транзакций.
func MarkTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, txMarkerKey{}, struct{}{})
}

// InTransaction сообщает, помечен ли контекст активной транзакцией.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txMarkerKey{}) != nil
}
