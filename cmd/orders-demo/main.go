// Команда orders-demo собирает сервис заказов поверх выбранного
// backend-а и прогоняет сквозной сценарий: создание заказа,
// добавление позиции, изменение количества и массовое завершение.
// Пока сценарий выполняется, доступны /metrics и /healthz.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// setupLogger настраивает формат и уровень логирования.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

func main() {
	setupLogger()

	cfg, err := app.ConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("неверная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"backend":      cfg.Backend,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем демонстрацию сервиса заказов")

	deps, err := app.NewDependencies(ctx, cfg, log.WithField("component", "app"))
	if err != nil {
		log.WithError(err).Fatal("не удалось собрать зависимости")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.WithError(err).Warn("ошибка при освобождении ресурсов")
		}
	}()

	metricsSrv := app.StartMetricsServer(ctx, cfg.MetricsAddr, deps.Logger, deps.Health)
	defer app.ShutdownHTTP(metricsSrv, deps.Logger)

	if err := runScenario(ctx, deps.Service); err != nil {
		log.WithError(err).Fatal("сценарий завершился с ошибкой")
	}

	log.Info("демонстрация завершена")
}

// runScenario выполняет сквозной сценарий работы с заказом.
func runScenario(ctx context.Context, service orders.API) error {
	shoes, err := domain.NewOrderItem("Shoes", 15, 1500)
	if err != nil {
		return err
	}

	created, err := service.CreateOrder(ctx, "Alex", []domain.OrderItem{*shoes})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"order_id": created.ID,
		"items":    len(created.Items),
	}).Info("заказ создан")

	socks, err := domain.NewOrderItem("Socks", 2, 300)
	if err != nil {
		return err
	}
	added, err := service.AddOrderItem(ctx, created.ID, *socks)
	if err != nil {
		return err
	}
	log.WithField("item_id", added.ID).Info("позиция добавлена")

	changed, err := service.ChangeOrderItemCount(ctx, created.Items[0].ID, 5)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"item_id":     changed.ID,
		"count":       changed.Count,
		"price_minor": changed.PriceMinor,
	}).Info("количество изменено")

	done, err := service.DoneAllOrders(ctx)
	if err != nil {
		return err
	}
	log.WithField("orders_done", done).Info("заказы завершены")

	final, err := service.GetOrder(ctx, created.ID)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"order_id":   final.ID,
		"done":       final.Done,
		"items":      len(final.Items),
		"updated_at": final.UpdatedAt,
	}).Info("итоговое состояние заказа")

	return nil
}
