package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// ComputeBalances aggregates every expense and settlement in scope into
// userID's signed net balance with each other party. Positive means the
// other party owes userID.
func (e *Engine) ComputeBalances(ctx context.Context, userID string, scope storage.Scope) (calculator.Result, error) {
	start := time.Now()
	defer e.observe("compute_balances", start)

	ctx, span := tracer.Start(ctx, "ledger.ComputeBalances")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("group_id", scope.GroupID))

	expenses, settlements, err := e.load(ctx, scope)
	if err != nil {
		return calculator.Result{}, e.persistence(ctx, span, "load_records", err)
	}

	result := calculator.ComputeBalances(userID, expenses, settlements)
	e.reportSkipped(ctx, result.Skipped)
	return result, nil
}

// GroupSummary is the balance panel of a group as seen by one member.
type GroupSummary struct {
	Group *models.Group

	// Balances is the viewer's net with each other party in the group.
	Balances calculator.Result

	Members   []calculator.MemberBalance
	Suggested []calculator.DebtEdge

	ExpenseCount int
	TotalSpent   decimal.Decimal
}

// GroupSummary computes userID's balances in group, every member's paid and
// owed totals, and a short list of payments that would settle the group.
func (e *Engine) GroupSummary(ctx context.Context, group *models.Group, userID string) (*GroupSummary, error) {
	start := time.Now()
	defer e.observe("group_summary", start)

	ctx, span := tracer.Start(ctx, "ledger.GroupSummary")
	defer span.End()

	if group == nil || group.ID == "" {
		return nil, invalid(UnknownGroup, "group summary needs a stored group")
	}
	span.SetAttributes(attribute.String("group_id", group.ID))

	expenses, settlements, err := e.load(ctx, storage.GroupScope(group.ID))
	if err != nil {
		return nil, e.persistence(ctx, span, "load_records", err)
	}

	balances := calculator.ComputeBalances(userID, expenses, settlements)
	members, skipped := calculator.MemberBalances(group.Members, expenses, settlements)
	e.reportSkipped(ctx, mergeSkipped(balances.Skipped, skipped))

	total := decimal.Zero
	for _, ex := range expenses {
		total = total.Add(ex.Total)
	}

	return &GroupSummary{
		Group:        group,
		Balances:     balances,
		Members:      members,
		Suggested:    calculator.SimplifyDebts(members),
		ExpenseCount: len(expenses),
		TotalSpent:   total,
	}, nil
}

// load reads expenses and settlements for scope concurrently.
func (e *Engine) load(ctx context.Context, scope storage.Scope) ([]models.Expense, []models.Settlement, error) {
	var (
		expenses    []models.Expense
		settlements []models.Settlement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = e.store.GetExpenses(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		settlements, err = e.store.GetSettlements(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return expenses, settlements, nil
}

func (e *Engine) reportSkipped(ctx context.Context, skipped []calculator.Skipped) {
	if len(skipped) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, s := range skipped {
		counts[s.Reason]++
		e.logger.WarnContext(ctx, "record skipped in aggregation",
			"kind", s.Kind,
			"id", s.ID,
			"reason", s.Reason,
		)
	}
	if e.metrics != nil {
		e.metrics.AddSkipped(counts)
	}
}

// mergeSkipped joins skip lists computed over the same records, keeping
// each record once.
func mergeSkipped(lists ...[]calculator.Skipped) []calculator.Skipped {
	var out []calculator.Skipped
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			key := s.Kind + ":" + s.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
