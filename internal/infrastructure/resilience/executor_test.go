package resilience

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

func testConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      3,
		BreakerFailureRatio:     1.0,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func newTestExecutor(cfg Config) *Executor {
	return NewExecutor(cfg, RetrievalClassifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	executor := newTestExecutor(testConfig())

	attempts := 0
	err := executor.Do(context.Background(), "flaky", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return domain.WrapError(domain.ErrProviderUnavailable, "flaky", fmt.Errorf("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoDoesNotRetryNonRetryableErrors(t *testing.T) {
	executor := newTestExecutor(testConfig())

	attempts := 0
	err := executor.Do(context.Background(), "broken", func(context.Context) error {
		attempts++
		return fmt.Errorf("logic error")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	executor := newTestExecutor(testConfig())

	attempts := 0
	err := executor.Do(context.Background(), "down", func(context.Context) error {
		attempts++
		return domain.WrapError(domain.ErrProviderUnavailable, "down", fmt.Errorf("still down"))
	})
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.RetryMaxAttempts = 1
	executor := newTestExecutor(cfg)

	fail := func(context.Context) error {
		return domain.WrapError(domain.ErrProviderUnavailable, "store", fmt.Errorf("down"))
	}
	for i := 0; i < 3; i++ {
		_ = executor.Do(context.Background(), "store", fail)
	}

	calls := 0
	err := executor.Do(context.Background(), "store", func(context.Context) error {
		calls++
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("callback must not run while the circuit is open")
	}
}

func TestBreakersAreIndependentPerOperation(t *testing.T) {
	cfg := testConfig()
	cfg.RetryMaxAttempts = 1
	executor := newTestExecutor(cfg)

	fail := func(context.Context) error {
		return domain.WrapError(domain.ErrProviderUnavailable, "store", fmt.Errorf("down"))
	}
	for i := 0; i < 3; i++ {
		_ = executor.Do(context.Background(), "store", fail)
	}

	err := executor.Do(context.Background(), "embedder", func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("independent operation must stay closed, got %v", err)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	executor := newTestExecutor(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := executor.Do(ctx, "store", func(context.Context) error {
		attempts++
		return nil
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if attempts != 0 {
		t.Fatalf("callback must not run after cancellation")
	}
}

func TestRetrievalClassifier(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"cancelled", context.Canceled, ErrorClassification{Retryable: false, RecordFailure: false}},
		{"deadline", context.DeadlineExceeded, ErrorClassification{Retryable: false, RecordFailure: false}},
		{"invalid query", domain.WrapError(domain.ErrInvalidQuery, "search", fmt.Errorf("empty")), ErrorClassification{Retryable: false, RecordFailure: false}},
		{"not found", domain.WrapError(domain.ErrNotFound, "search", fmt.Errorf("missing")), ErrorClassification{Retryable: false, RecordFailure: false}},
		{"provider down", domain.WrapError(domain.ErrProviderUnavailable, "qdrant", fmt.Errorf("down")), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"temporary", domain.WrapError(domain.ErrTemporary, "nats", fmt.Errorf("reconnecting")), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"unknown", fmt.Errorf("boom"), ErrorClassification{Retryable: false, RecordFailure: true}},
	}

	for _, tc := range cases {
		if got := RetrievalClassifier(tc.err); got != tc.want {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}
