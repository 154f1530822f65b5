package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/storage"
)

// GroupBalances returns the group's simplified debt graph. The result is a
// copy; callers may modify it freely.
func (l *Ledger) GroupBalances(ctx context.Context, groupID string) (calculator.Graph, error) {
	if _, err := l.members(ctx, groupID); err != nil {
		return nil, err
	}
	return l.group(groupID).netted(l).Clone(), nil
}

// MemberBalance projects the group's balances onto userID. Positive values
// are owed to userID, negative values are owed by userID. A settled-up
// member gets an empty map.
func (l *Ledger) MemberBalance(ctx context.Context, userID, groupID string) (map[string]decimal.Decimal, error) {
	ok, err := l.dir.IsMember(ctx, groupID, userID)
	if errors.Is(err, storage.ErrGroupNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check membership in group %s: %w", groupID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q in group %s", ErrNonMember, userID, groupID)
	}

	return calculator.MemberView(l.group(groupID).netted(l), userID), nil
}

// Summaries returns paid/owed totals per member of the group's history.
func (l *Ledger) Summaries(ctx context.Context, groupID string) ([]calculator.MemberSummary, error) {
	if _, err := l.members(ctx, groupID); err != nil {
		return nil, err
	}
	expenses, settlements := l.group(groupID).snapshot()
	return calculator.Summaries(expenses, settlements), nil
}

// SettlementPlan suggests a short list of transfers that would settle the
// whole group.
func (l *Ledger) SettlementPlan(ctx context.Context, groupID string) ([]calculator.DebtEdge, error) {
	summaries, err := l.Summaries(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.SettlementPlan(summaries), nil
}

// netted returns the cached simplified graph, recomputing it against a
// consistent snapshot when stale. The returned graph is never mutated by
// the ledger; a new one replaces it on the next write.
func (g *groupLedger) netted(l *Ledger) calculator.Graph {
	g.mu.RLock()
	cached := g.balances
	g.mu.RUnlock()
	if cached != nil {
		l.metrics.CacheHit()
		return cached
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Another reader may have filled the cache while we waited.
	if g.balances != nil {
		l.metrics.CacheHit()
		return g.balances
	}

	start := time.Now()
	g.balances = calculator.NetGroup(g.expenses, g.settlements)
	elapsed := time.Since(start)

	l.metrics.Netted(elapsed)
	l.logger.Debug("Balances recomputed",
		"expenses", len(g.expenses),
		"settlements", len(g.settlements),
		"edges", len(g.balances.Edges()),
		"duration_ms", elapsed.Milliseconds(),
	)
	return g.balances
}
