package inventory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

// recordingStore counts calls and can be told to fail.
type recordingStore struct {
	calls atomic.Int32
	err   error
	res   ReservationResult
}

func (s *recordingStore) Reserve(ctx context.Context, item string, quantity, defaultStock int64) (ReservationResult, error) {
	s.calls.Add(1)
	return s.res, s.err
}

func (s *recordingStore) Stock(ctx context.Context, item string) (int64, bool, error) {
	s.calls.Add(1)
	return s.res.Remaining, s.err == nil, s.err
}

func newTestService(t *testing.T, store Store, defaultStock int64) (*DefaultService, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewService(store, zaptest.NewLogger(t), noop.NewTracerProvider().Tracer("test"), metrics, Options{
		DefaultStock: defaultStock,
		StoreTimeout: time.Second,
	})
	return svc, metrics
}

func TestServiceReserveAndStock(t *testing.T) {
	store, _ := newRedisStore(t)
	svc, metrics := newTestService(t, store, 100)
	ctx := context.Background()

	stock, err := svc.Stock(ctx, "widget")
	if err != nil || stock != 0 {
		t.Fatalf("unseen item should read 0, got %d (%v)", stock, err)
	}

	res, err := svc.Reserve(ctx, "widget", 30)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !res.Success || res.Remaining != 70 {
		t.Fatalf("expected 70 remaining, got %+v", res)
	}

	res, err = svc.Reserve(ctx, "widget", 1000)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Success || res.Remaining != 70 {
		t.Fatalf("expected rejection at 70, got %+v", res)
	}

	stock, err = svc.Stock(ctx, "widget")
	if err != nil || stock != 70 {
		t.Fatalf("expected 70, got %d (%v)", stock, err)
	}

	if got := testutil.ToFloat64(metrics.Reservations.WithLabelValues(resultReserved)); got != 1 {
		t.Fatalf("expected 1 reserved, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.Reservations.WithLabelValues(resultInsufficient)); got != 1 {
		t.Fatalf("expected 1 insufficient, got %v", got)
	}
}

func TestServiceRejectsInvalidInputWithoutStoreCall(t *testing.T) {
	store := &recordingStore{}
	svc, _ := newTestService(t, store, 100)

	cases := []struct {
		name     string
		item     string
		quantity int64
	}{
		{"empty item", "", 1},
		{"zero quantity", "widget", 0},
		{"negative quantity", "widget", -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Reserve(context.Background(), tc.item, tc.quantity)
			if !errors.Is(err, ErrInvalidReservation) {
				t.Fatalf("expected ErrInvalidReservation, got %v", err)
			}
		})
	}
	if got := store.calls.Load(); got != 0 {
		t.Fatalf("store must not be called for invalid input, got %d calls", got)
	}
}

func TestServiceStoreFailureIsDistinctFromInsufficientStock(t *testing.T) {
	cause := errors.New("connection refused")
	svc, metrics := newTestService(t, &recordingStore{err: cause}, 100)

	_, err := svc.Reserve(context.Background(), "widget", 1)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying cause to be wrapped, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.Reservations.WithLabelValues(resultError)); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}

	if _, err := svc.Stock(context.Background(), "widget"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from Stock, got %v", err)
	}
}

func TestServiceUnreachableStore(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	svc, _ := newTestService(t, store, 100)

	if _, err := svc.Reserve(context.Background(), "widget", 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestNewServiceClampsNegativeDefault(t *testing.T) {
	store, _ := newRedisStore(t)
	svc, _ := newTestService(t, store, -5)

	res, err := svc.Reserve(context.Background(), "widget", 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Success || res.Remaining != 0 {
		t.Fatalf("expected rejection against zero default, got %+v", res)
	}
}
