// Package ledger records expenses and settlements and computes who owes
// whom.
//
// The Engine holds no ledger state of its own. Every operation reads from
// and writes to the injected store, and relies on the store's
// UpdateBalance for read-modify-write atomicity on a single balance.
//
// # Write path
//
// RecordExpense and RecordSettlement validate first and return a
// *ValidationError before touching the store. They then persist the record
// and apply one balance delta per debtor. A store failure before the
// record is written is a *PersistenceError. A failure after it is a
// *PartialFailure naming the stored record; pass its RecordID to
// ResumeBalanceUpdate instead of recording the expense again.
//
// Every delta is written with a key derived from its record, so the store
// applies it at most once no matter how often the balance step is re-run.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/observability"
	"github.com/mmynk/splitledger/internal/storage"
)

var tracer = otel.Tracer("github.com/mmynk/splitledger/internal/ledger")

// Engine is the ledger entry point.
type Engine struct {
	store   storage.LedgerStore
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates an Engine over store. metrics and logger may be nil.
func NewEngine(store storage.LedgerStore, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ResumeBalanceUpdate re-runs the balance step of the stored expense or
// settlement recordID and returns how many deltas it applied. The deltas
// are rebuilt from the record and those applied before are skipped.
//
// userID must take part in the record. A record with nothing left to apply
// is rejected with NothingPending; one that still fails returns a
// *PartialFailure again.
func (e *Engine) ResumeBalanceUpdate(ctx context.Context, recordID, userID string) (int, error) {
	start := time.Now()
	defer e.observe("resume_balance_update", start)

	ctx, span := tracer.Start(ctx, "ledger.ResumeBalanceUpdate")
	defer span.End()
	span.SetAttributes(attribute.String("record_id", recordID), attribute.String("user_id", userID))

	participants, deltas, err := e.recordDeltas(ctx, recordID)
	if isNotFound(err) {
		return 0, err
	}
	if err != nil {
		return 0, e.persistence(ctx, span, "get_record", err)
	}
	if !slices.Contains(participants, userID) {
		return 0, invalid(NotParticipant, "%s takes no part in record %s", userID, recordID)
	}

	applied, pending, err := e.applyDeltas(ctx, recordID, deltas)
	if err != nil {
		fail := &PartialFailure{Op: "resume_balance_update", RecordID: recordID, Pending: pending, Err: err}
		e.partial(ctx, span, fail)
		return applied, fail
	}
	if applied == 0 {
		return 0, invalid(NothingPending, "record %s has no pending balance updates", recordID)
	}

	e.logger.InfoContext(ctx, "balance update resumed",
		"record_id", recordID,
		"applied", applied,
		"skipped", len(deltas)-applied,
	)
	return applied, nil
}

// recordDeltas loads recordID as an expense, then as a settlement, and
// returns its participants and the deltas its balance step applies.
func (e *Engine) recordDeltas(ctx context.Context, recordID string) ([]string, []BalanceDelta, error) {
	expense, err := e.store.GetExpense(ctx, recordID)
	if err == nil {
		return expense.Participants(), expenseDeltas(expense, nil), nil
	}
	if !isNotFound(err) {
		return nil, nil, err
	}

	settlement, err := e.store.GetSettlement(ctx, recordID)
	if isNotFound(err) {
		return nil, nil, fmt.Errorf("record %s: %w", recordID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	participants := []string{settlement.FromUserID, settlement.ToUserID}
	if settlement.Status != models.SettlementCompleted {
		return participants, nil, nil
	}
	return participants, []BalanceDelta{settlementDelta(settlement)}, nil
}

// applyDeltas applies each delta of recordID with its own keyed
// read-modify-write. It tries every delta and returns how many it applied
// and the ones that failed. Deltas applied by an earlier run are skipped.
func (e *Engine) applyDeltas(ctx context.Context, recordID string, deltas []BalanceDelta) (int, []BalanceDelta, error) {
	var (
		applied  int
		pending  []BalanceDelta
		firstErr error
	)
	for _, d := range deltas {
		_, err := e.store.UpdateBalance(ctx, deltaKey(recordID, d), d.Creditor, d.Debtor, func(b *models.Balance) error {
			b.Credit(d.Creditor, d.Debtor, d.Amount)
			return nil
		})
		switch {
		case err == nil:
			applied++
		case errors.Is(err, storage.ErrAlreadyApplied):
		default:
			pending = append(pending, d)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return applied, pending, firstErr
}

// deltaKey identifies one delta of one record.
func deltaKey(recordID string, d BalanceDelta) string {
	return recordID + ":" + d.Creditor + ">" + d.Debtor
}

func (e *Engine) observe(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordDuration(op, time.Since(start))
	}
}

func (e *Engine) partial(ctx context.Context, span trace.Span, fail *PartialFailure) {
	span.RecordError(fail)
	span.SetStatus(codes.Error, "partial failure")
	if e.metrics != nil {
		e.metrics.IncrPartialFailure(fail.Op)
	}
	e.logger.ErrorContext(ctx, "balance update incomplete",
		"op", fail.Op,
		"record_id", fail.RecordID,
		"pending", len(fail.Pending),
		"error", fail.Err,
	)
}

func (e *Engine) persistence(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	e.logger.ErrorContext(ctx, "store call failed", "op", op, "error", err)
	return &PersistenceError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
