package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestNewCartMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetricsWithRegisterer(reg)

	if m.operations == nil || m.persistDuration == nil || m.eventsPublished == nil {
		t.Fatal("vector collectors should not be nil")
	}
	if m.distinctItems == nil || m.units == nil {
		t.Fatal("gauges should not be nil")
	}
}

func TestNewCartMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCartMetricsWithRegisterer(reg)
	second := NewCartMetricsWithRegisterer(reg)

	first.RecordOperation("add_item", nil)
	second.RecordOperation("add_item", nil)

	if got := testutil.ToFloat64(first.operations.WithLabelValues("add_item", ResultOK)); got != 2 {
		t.Fatalf("expected shared counter value 2, got %f", got)
	}
}

func TestRecordOperation(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOperation("add_item", nil)
	m.RecordOperation("add_item", nil)
	m.RecordOperation("add_item", errors.New("boom"))
	m.RecordOperation("reset", nil)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("add_item", ResultOK)); got != 2 {
		t.Errorf("expected add_item ok = 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("add_item", ResultError)); got != 1 {
		t.Errorf("expected add_item error = 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("reset", ResultOK)); got != 1 {
		t.Errorf("expected reset ok = 1, got %f", got)
	}
}

func TestSetCartSize(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.SetCartSize(3, 7)
	if got := testutil.ToFloat64(m.distinctItems); got != 3 {
		t.Errorf("expected distinct items 3, got %f", got)
	}
	if got := testutil.ToFloat64(m.units); got != 7 {
		t.Errorf("expected units 7, got %f", got)
	}

	m.SetCartSize(0, 0)
	if got := testutil.ToFloat64(m.units); got != 0 {
		t.Errorf("expected units 0 after reset, got %f", got)
	}
}

func TestRecordEventPublished(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordEventPublished(nil)
	m.RecordEventPublished(domain.ErrEventPublish)

	if got := testutil.ToFloat64(m.eventsPublished.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("expected ok = 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.eventsPublished.WithLabelValues(ResultError)); got != 1 {
		t.Errorf("expected error = 1, got %f", got)
	}
}

func TestRecordPersistDuration(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordPersistDuration("save", 10*time.Millisecond)
	m.RecordPersistDuration("save", 30*time.Millisecond)

	metric := &dto.Metric{}
	observer := m.persistDuration.WithLabelValues("save")
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
	sum := metric.Histogram.GetSampleSum()
	if sum < 0.039 || sum > 0.041 {
		t.Errorf("expected sum around 0.04, got %f", sum)
	}
}

func TestNilCartMetricsIsNoop(t *testing.T) {
	var m *CartMetrics
	m.RecordOperation("add_item", nil)
	m.RecordPersistDuration("load", time.Millisecond)
	m.SetCartSize(1, 1)
	m.RecordEventPublished(nil)
}

func TestInstrumentRepository(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())
	repo := InstrumentRepository(memory.NewCartRepository(""), m)

	state := domain.CartState{Items: []domain.CartItem{
		{Product: domain.Product{ID: "p-1", Price: 10, Stock: domain.StockOf(1)}, Quantity: 1},
	}}
	if err := repo.Save(state); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Items) != 1 {
		t.Fatalf("unexpected loaded state: %+v", loaded)
	}

	if got := testutil.CollectAndCount(m.persistDuration); got != 2 {
		t.Fatalf("expected load and save series, got %d", got)
	}

	pinger, ok := repo.(interface{ Ping() error })
	if !ok {
		t.Fatal("instrumented repository should expose Ping")
	}
	if err := pinger.Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestInstrumentRepository_NilMetrics(t *testing.T) {
	base := memory.NewCartRepository("")
	if got := InstrumentRepository(base, nil); got != domain.CartRepository(base) {
		t.Fatal("expected repository to be returned unchanged")
	}
}
