// Package resilient decorates a storage.Store with a circuit breaker on
// every ledger call and retry with backoff on reads.
//
// Writes are never retried here: a retried PutExpense could store the
// expense twice, and a retried UpdateBalance could apply a delta twice.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/observability"
	"github.com/mmynk/splitledger/internal/resilience"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store wraps another store. Non-ledger methods pass straight through.
type Store struct {
	storage.Store

	breaker *gobreaker.CircuitBreaker
	cfg     resilience.Config
	metrics *observability.Metrics
}

// New wraps inner. metrics may be nil.
func New(inner storage.Store, cfg resilience.Config, metrics *observability.Metrics) *Store {
	return &Store{
		Store:   inner,
		breaker: resilience.NewCircuitBreaker("ledger-store", healthy),
		cfg:     cfg,
		metrics: metrics,
	}
}

// healthy reports whether err says nothing about the backend's health.
func healthy(err error) bool {
	return err == nil ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrAlreadyExists) ||
		errors.Is(err, storage.ErrAlreadyApplied) ||
		errors.Is(err, context.Canceled)
}

// call runs fn through the breaker.
func (s *Store) call(op string, fn func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil && !healthy(err) && s.metrics != nil {
		s.metrics.IncrStoreError(op)
	}
	return err
}

// read runs fn through the breaker, retrying transient failures.
func (s *Store) read(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordDuration("store_"+op, time.Since(start))
		}
	}()

	return resilience.RetryWithBackoff(ctx, s.cfg, func() error {
		err := s.call(op, fn)
		if healthy(err) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return resilience.Permanent(err)
		}
		return err
	})
}

func (s *Store) PutExpense(ctx context.Context, expense *models.Expense) error {
	return s.call("put_expense", func() error {
		return s.Store.PutExpense(ctx, expense)
	})
}

func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	var out *models.Expense
	err := s.read(ctx, "get_expense", func() error {
		var err error
		out, err = s.Store.GetExpense(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) GetExpenses(ctx context.Context, scope storage.Scope) ([]models.Expense, error) {
	var out []models.Expense
	err := s.read(ctx, "get_expenses", func() error {
		var err error
		out, err = s.Store.GetExpenses(ctx, scope)
		return err
	})
	return out, err
}

func (s *Store) PutSettlement(ctx context.Context, settlement *models.Settlement) error {
	return s.call("put_settlement", func() error {
		return s.Store.PutSettlement(ctx, settlement)
	})
}

func (s *Store) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	var out *models.Settlement
	err := s.read(ctx, "get_settlement", func() error {
		var err error
		out, err = s.Store.GetSettlement(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) GetSettlements(ctx context.Context, scope storage.Scope) ([]models.Settlement, error) {
	var out []models.Settlement
	err := s.read(ctx, "get_settlements", func() error {
		var err error
		out, err = s.Store.GetSettlements(ctx, scope)
		return err
	})
	return out, err
}

func (s *Store) GetBalance(ctx context.Context, userA, userB string) (*models.Balance, error) {
	var out *models.Balance
	err := s.read(ctx, "get_balance", func() error {
		var err error
		out, err = s.Store.GetBalance(ctx, userA, userB)
		return err
	})
	return out, err
}

// UpdateBalance passes fn's own error back untouched and keeps it out of
// the breaker's failure count.
func (s *Store) UpdateBalance(ctx context.Context, key, userA, userB string, fn func(*models.Balance) error) (*models.Balance, error) {
	var (
		out   *models.Balance
		fnErr error
	)
	err := s.call("update_balance", func() error {
		var err error
		out, err = s.Store.UpdateBalance(ctx, key, userA, userB, func(b *models.Balance) error {
			fnErr = fn(b)
			return fnErr
		})
		if fnErr != nil {
			return nil
		}
		return err
	})
	if fnErr != nil {
		return nil, fnErr
	}
	return out, err
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var out *models.Group
	err := s.read(ctx, "get_group", func() error {
		var err error
		out, err = s.Store.GetGroup(ctx, groupID)
		return err
	})
	return out, err
}
