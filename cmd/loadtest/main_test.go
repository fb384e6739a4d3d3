package main

import (
	"errors"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	if got := percentile(sorted, 50); got != 5 {
		t.Errorf("p50 = %f, want 5", got)
	}
	if got := percentile(sorted, 95); got != 10 {
		t.Errorf("p95 = %f, want 10", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("empty percentile = %f, want 0", got)
	}
}

func TestBuildLatencySummary(t *testing.T) {
	summary := buildLatencySummary([]float64{3, 1, 2})

	if summary.Min != 1 || summary.Max != 3 {
		t.Errorf("unexpected bounds: %+v", summary)
	}
	if summary.Avg != 2 {
		t.Errorf("avg = %f, want 2", summary.Avg)
	}

	empty := buildLatencySummary(nil)
	if empty != (latencySummary{}) {
		t.Errorf("empty summary must be zero, got %+v", empty)
	}
}

func TestCollectorReport(t *testing.T) {
	stats := newCollector()

	stats.record("scenario", 10*time.Millisecond, nil)
	stats.record("scenario", 20*time.Millisecond, errors.New("boom"))
	stats.record("create_order", 5*time.Millisecond, nil)
	stats.addSwept(7)

	result := stats.buildReport(time.Now(), 2*time.Second)

	if result.TotalScenarios != 2 {
		t.Errorf("total scenarios = %d, want 2", result.TotalScenarios)
	}
	if result.FailedScenarios != 1 {
		t.Errorf("failed scenarios = %d, want 1", result.FailedScenarios)
	}
	if result.ScenariosPerSec != 1 {
		t.Errorf("scenarios per sec = %f, want 1", result.ScenariosPerSec)
	}
	if result.OrdersSweptTotal != 7 {
		t.Errorf("orders swept = %d, want 7", result.OrdersSweptTotal)
	}

	create, ok := result.Methods["create_order"]
	if !ok {
		t.Fatal("create_order method report missing")
	}
	if create.Calls != 1 || create.Failed != 0 {
		t.Errorf("unexpected create_order report: %+v", create)
	}
}

func TestRatio(t *testing.T) {
	if got := ratio(1, 4); got != 0.25 {
		t.Errorf("ratio = %f, want 0.25", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Errorf("zero total ratio = %f, want 0", got)
	}
}
