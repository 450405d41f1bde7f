package resilient

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/resilience"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var errUnavailable = errors.New("backend unavailable")

// flakyStore fails the first failReads reads and every write while failWrites is set.
type flakyStore struct {
	storage.Store
	failReads  int
	failWrites bool
	reads      int
	writes     int
}

func (f *flakyStore) GetExpenses(ctx context.Context, scope storage.Scope) ([]models.Expense, error) {
	f.reads++
	if f.reads <= f.failReads {
		return nil, errUnavailable
	}
	return f.Store.GetExpenses(ctx, scope)
}

func (f *flakyStore) PutExpense(ctx context.Context, e *models.Expense) error {
	f.writes++
	if f.failWrites {
		return errUnavailable
	}
	return f.Store.PutExpense(ctx, e)
}

func newFlaky(t *testing.T) *flakyStore {
	t.Helper()
	inner, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { inner.Close() })
	return &flakyStore{Store: inner}
}

var fastRetry = resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

func TestReadsAreRetried(t *testing.T) {
	flaky := newFlaky(t)
	flaky.failReads = 2
	s := New(flaky, fastRetry, nil)

	_, err := s.GetExpenses(context.Background(), storage.GroupScope("g1"))
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if flaky.reads != 3 {
		t.Errorf("Expected 3 reads, got %d", flaky.reads)
	}
}

func TestWritesAreNotRetried(t *testing.T) {
	flaky := newFlaky(t)
	flaky.failWrites = true
	s := New(flaky, fastRetry, nil)

	err := s.PutExpense(context.Background(), &models.Expense{Name: "x", Total: decimal.NewFromInt(1), PayerID: "A"})
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("Expected errUnavailable, got %v", err)
	}
	if flaky.writes != 1 {
		t.Errorf("Expected exactly 1 write attempt, got %d", flaky.writes)
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	s := New(newFlaky(t), fastRetry, nil)

	_, err := s.GetBalance(context.Background(), "A", "B")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBalanceReturnsCallbackError(t *testing.T) {
	s := New(newFlaky(t), fastRetry, nil)
	rejected := errors.New("rejected")

	for i := 0; i < 10; i++ {
		_, err := s.UpdateBalance(context.Background(), "", "A", "B", func(*models.Balance) error {
			return rejected
		})
		if !errors.Is(err, rejected) {
			t.Fatalf("Expected callback error, got %v", err)
		}
	}
	if s.breaker.State() != gobreaker.StateClosed {
		t.Errorf("Callback errors must not open the breaker, state %s", s.breaker.State())
	}
}

func TestReplayedUpdateKeepsBreakerClosed(t *testing.T) {
	s := New(newFlaky(t), fastRetry, nil)
	ctx := context.Background()
	credit := func(b *models.Balance) error {
		b.Credit("A", "B", decimal.NewFromInt(1))
		return nil
	}

	if _, err := s.UpdateBalance(ctx, "e1:A>B", "A", "B", credit); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		_, err := s.UpdateBalance(ctx, "e1:A>B", "A", "B", credit)
		if !errors.Is(err, storage.ErrAlreadyApplied) {
			t.Fatalf("Expected ErrAlreadyApplied, got %v", err)
		}
	}
	if s.breaker.State() != gobreaker.StateClosed {
		t.Errorf("Replayed updates must not open the breaker, state %s", s.breaker.State())
	}

	b, err := s.GetBalance(ctx, "A", "B")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !b.OwedTo("A").Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected B to owe A 1, got %s", b.OwedTo("A"))
	}
}

func TestBreakerOpensOnWriteFailures(t *testing.T) {
	flaky := newFlaky(t)
	flaky.failWrites = true
	s := New(flaky, fastRetry, nil)

	for i := 0; i < 5; i++ {
		_ = s.PutExpense(context.Background(), &models.Expense{Name: "x", Total: decimal.NewFromInt(1), PayerID: "A"})
	}

	err := s.PutExpense(context.Background(), &models.Expense{Name: "x", Total: decimal.NewFromInt(1), PayerID: "A"})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if flaky.writes != 5 {
		t.Errorf("Open breaker should short-circuit, got %d writes", flaky.writes)
	}
}
