// Команда loadtest гоняет сервис заказов под конкурентной нагрузкой:
// воркеры создают заказы и меняют позиции, параллельный sweeper
// периодически завершает всё незавершённое батчами. Это основной
// способ проверить skip-locked завершение под contention-ом.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

type config struct {
	total         int
	concurrency   int
	sweepInterval time.Duration
	outputPath    string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64          `json:"calls"`
	Success   int64          `json:"success"`
	Failed    int64          `json:"failed"`
	ErrorRate float64        `json:"error_rate"`
	LatencyMs latencySummary `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time               `json:"started_at"`
	DurationSeconds  float64                 `json:"duration_seconds"`
	TotalScenarios   int64                   `json:"total_scenarios"`
	FailedScenarios  int64                   `json:"failed_scenarios"`
	ScenariosPerSec  float64                 `json:"scenarios_per_sec"`
	OrdersSweptTotal int64                   `json:"orders_swept_total"`
	Methods          map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
	swept   int64
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{}
		c.methods[method] = stats
	}

	stats.calls++
	if err == nil {
		stats.success++
	} else {
		stats.failed++
	}
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) addSwept(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swept += count
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:        startedAt.UTC(),
		DurationSeconds:  duration.Seconds(),
		OrdersSweptTotal: c.swept,
		Methods:          make(map[string]methodReport, len(c.methods)),
	}

	if scenario := c.methods["scenario"]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.FailedScenarios = scenario.failed
		if duration > 0 {
			result.ScenariosPerSec = float64(scenario.calls) / duration.Seconds()
		}
	}

	for name, stats := range c.methods {
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() config {
	var cfg config

	flag.IntVar(&cfg.total, "total", 1000, "total scenarios to execute")
	flag.IntVar(&cfg.concurrency, "concurrency", 8, "number of concurrent workers")
	flag.DurationVar(&cfg.sweepInterval, "sweep-interval", 250*time.Millisecond, "interval between done-all sweeps (0 disables)")
	flag.StringVar(&cfg.outputPath, "output", "", "path for JSON report (default: stdout)")
	flag.Parse()

	return cfg
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel) // под нагрузкой логи use case-ов не нужны

	cfg := parseConfig()

	appCfg, err := app.ConfigFromEnv()
	if err != nil {
		fail("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.NewDependencies(ctx, appCfg, log.WithField("component", "loadtest"))
	if err != nil {
		fail("build dependencies: %v", err)
	}
	defer func() { _ = deps.Close() }()

	stats := newCollector()
	startedAt := time.Now()

	var sweeperWG sync.WaitGroup
	if cfg.sweepInterval > 0 {
		sweeperWG.Add(1)
		go func() {
			defer sweeperWG.Done()
			runSweeper(ctx, deps.Service, cfg.sweepInterval, stats)
		}()
	}

	runWorkers(ctx, deps.Service, cfg, stats)

	cancel()
	sweeperWG.Wait()

	// Финальный sweep добирает заказы, созданные после последнего тика.
	start := time.Now()
	swept, err := deps.Service.DoneAllOrders(context.Background())
	stats.record("done_all_orders", time.Since(start), err)
	if err == nil {
		stats.addSwept(swept)
	}

	result := stats.buildReport(startedAt, time.Since(startedAt))
	if err := writeReport(result, cfg.outputPath); err != nil {
		fail("write report: %v", err)
	}
}

func runWorkers(ctx context.Context, service orders.API, cfg config, stats *collector) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				start := time.Now()
				err := runScenario(ctx, service, n, stats)
				stats.record("scenario", time.Since(start), err)
			}
		}()
	}

feed:
	for n := 0; n < cfg.total; n++ {
		select {
		case jobs <- n:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}

// runScenario создаёт заказ, добавляет позицию, меняет количество
// и перечитывает агрегат.
func runScenario(ctx context.Context, service orders.API, n int, stats *collector) error {
	item, err := domain.NewOrderItem("Shoes", 15, 1500)
	if err != nil {
		return err
	}

	start := time.Now()
	created, err := service.CreateOrder(ctx, fmt.Sprintf("loadtest-%04d", n%10000), []domain.OrderItem{*item})
	stats.record("create_order", time.Since(start), err)
	if err != nil {
		return err
	}

	extra, err := domain.NewOrderItem("Socks", 2, 300)
	if err != nil {
		return err
	}
	start = time.Now()
	added, err := service.AddOrderItem(ctx, created.ID, *extra)
	stats.record("add_order_item", time.Since(start), err)
	if err != nil {
		// Заказ мог быть завершён конкурентным sweep-ом между create и add.
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil
		}
		return err
	}

	start = time.Now()
	_, err = service.ChangeOrderItemCount(ctx, added.ID, 1+n%10)
	stats.record("change_order_item_count", time.Since(start), err)
	if err != nil && !errors.Is(err, domain.ErrOrderItemNotFound) {
		return err
	}

	start = time.Now()
	_, err = service.GetOrder(ctx, created.ID)
	stats.record("get_order", time.Since(start), err)
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		return err
	}

	return nil
}

func runSweeper(ctx context.Context, service orders.API, interval time.Duration, stats *collector) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			swept, err := service.DoneAllOrders(ctx)
			stats.record("done_all_orders", time.Since(start), err)
			if err == nil {
				stats.addSwept(swept)
			}
		}
	}
}

func writeReport(result report, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func buildLatencySummary(latencies []float64) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100.0*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
