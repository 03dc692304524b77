package taskgroup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAsyncAwait(t *testing.T) {
	t.Parallel()
	task := Async(context.Background(), func(context.Context) (string, error) {
		return "Data loaded", nil
	})
	v, err := task.Await(context.Background())
	if err != nil || v != "Data loaded" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	select {
	case <-task.Done():
	default:
		t.Fatal("Done should be closed after Await")
	}
}

func TestAsyncAwaitFromManyGoroutines(t *testing.T) {
	t.Parallel()
	errBad := errors.New("bad")
	task := Async(context.Background(), func(context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 0, errBad
	})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := task.Await(context.Background()); !errors.Is(err, errBad) {
				t.Errorf("expected bad, got %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestAsyncCancel(t *testing.T) {
	t.Parallel()
	stop := errors.New("stop")
	task := Async(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := task.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected caller deadline, got %v", err)
	}

	task.Cancel(stop)
	_, err := task.Await(context.Background())
	var cerr *CancelledError
	if !errors.As(err, &cerr) || !errors.Is(err, stop) {
		t.Fatalf("expected cancellation with cause stop, got %v", err)
	}
}

func TestAsyncNilWork(t *testing.T) {
	t.Parallel()
	task := Async[int](context.Background(), nil)
	if _, err := task.Await(context.Background()); !errors.Is(err, ErrNilWork) {
		t.Fatalf("expected ErrNilWork, got %v", err)
	}
}
