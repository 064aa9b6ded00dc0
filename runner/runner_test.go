package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
)

func testFanout(opts ...Option) *Fanout {
	return NewFanout(append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func TestNewFanoutDefaults(t *testing.T) {
	f := testFanout()
	if f.MaxConcurrency() != DefaultMaxConcurrency {
		t.Errorf("expected concurrency %d, got %d", DefaultMaxConcurrency, f.MaxConcurrency())
	}
	if f.Timeout() != DefaultTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultTimeout, f.Timeout())
	}
}

func TestNewFanoutIgnoresInvalidOptions(t *testing.T) {
	f := testFanout(WithMaxConcurrency(0), WithTimeout(-time.Second))
	if f.MaxConcurrency() != DefaultMaxConcurrency || f.Timeout() != DefaultTimeout {
		t.Errorf("invalid options should keep defaults, got %d/%s", f.MaxConcurrency(), f.Timeout())
	}
}

func TestGatherNilOperation(t *testing.T) {
	_, err := Gather[int, int](context.Background(), testFanout(), []int{1}, nil)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGatherEmptyInputs(t *testing.T) {
	results, err := Gather(context.Background(), testFanout(), []int(nil), func(ctx context.Context, in int) (int, error) {
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestGatherPreservesOrder(t *testing.T) {
	inputs := []int{5, 4, 3, 2, 1}
	results, err := Gather(context.Background(), testFanout(), inputs, func(ctx context.Context, in int) (string, error) {
		time.Sleep(time.Duration(in) * time.Millisecond)
		return fmt.Sprintf("v%d", in), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range results {
		if r.Index != i || r.Input != inputs[i] {
			t.Errorf("result %d: got index %d input %d", i, r.Index, r.Input)
		}
		if r.Value != fmt.Sprintf("v%d", inputs[i]) {
			t.Errorf("result %d: got value %q", i, r.Value)
		}
	}
}

func TestGatherIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	results, err := Gather(context.Background(), testFanout(), []int{0, 1, 2, 3}, func(ctx context.Context, in int) (int, error) {
		if in%2 == 1 {
			return 0, boom
		}
		return in * 10, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Failed(results) != 2 {
		t.Fatalf("expected 2 failures, got %d", Failed(results))
	}
	if !results[0].OK() || results[0].Value != 0 || !results[2].OK() || results[2].Value != 20 {
		t.Errorf("successful results were not kept: %+v", results)
	}
	if !errors.Is(results[1].Err, boom) || !errors.Is(results[3].Err, boom) {
		t.Errorf("failures were not captured: %+v", results)
	}
}

func TestGatherRecoversPanics(t *testing.T) {
	results, err := Gather(context.Background(), testFanout(), []int{1, 2}, func(ctx context.Context, in int) (int, error) {
		if in == 2 {
			panic("bad input")
		}
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].OK() {
		t.Errorf("first operation should succeed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, errs.ErrInternal) {
		t.Errorf("expected panic captured as ErrInternal, got %v", results[1].Err)
	}
}

func TestGatherTimeoutDoesNotBlockBatch(t *testing.T) {
	f := testFanout(WithTimeout(20 * time.Millisecond))
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	results, err := Gather(context.Background(), f, []int{1, 2}, func(ctx context.Context, in int) (int, error) {
		if in == 2 {
			// ignores its context on purpose
			<-release
		}
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("batch blocked on hung operation for %s", elapsed)
	}
	if !results[0].OK() {
		t.Errorf("sibling should not be cancelled: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, errs.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", results[1].Err)
	}
}

func TestGatherRespectsConcurrencyLimit(t *testing.T) {
	const limit = 2
	var inFlight, peak int32
	inputs := make([]int, 8)

	_, err := Gather(context.Background(), testFanout(WithMaxConcurrency(limit)), inputs, func(ctx context.Context, in int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak > limit {
		t.Errorf("expected at most %d concurrent operations, saw %d", limit, peak)
	}
}

func TestGatherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results, err := Gather(ctx, testFanout(), []int{1, 2, 3}, func(ctx context.Context, in int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 || Failed(results) != 3 {
		t.Fatalf("expected 3 failed results, got %+v", results)
	}
	if calls != 0 {
		t.Errorf("operations should not start after cancellation, got %d calls", calls)
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].Err)
	}
}
