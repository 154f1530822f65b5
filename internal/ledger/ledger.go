// Package ledger keeps the append-only expense and settlement history of
// each group and derives netted balances from it.
//
// A Ledger is an explicit value: construct one with New and pass it to
// whoever needs it. Each group has its own read/write lock, so operations on
// different groups never contend. Writers append and invalidate the cached
// balances under the write lock; readers serve the cache under the read lock
// and recompute it under the write lock when it is stale.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Directory answers membership questions about groups. Unknown groups are
// reported with storage.ErrGroupNotFound.
type Directory interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	MembersOf(ctx context.Context, groupID string) ([]string, error)
}

// ExpenseInput describes an expense to record.
type ExpenseInput struct {
	GroupID     string
	PayerID     string
	Description string
	Total       decimal.Decimal
	Kind        models.SplitKind

	// Participants is ordered; the last one absorbs rounding remainders.
	Participants []string
	Params       calculator.SplitParams
}

// SettlementInput describes a direct payment between two members.
type SettlementInput struct {
	GroupID string
	FromID  string
	ToID    string
	Amount  decimal.Decimal
	Note    string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMinorUnit sets the rounding granularity (default 2 places).
func WithMinorUnit(places money.Places) Option {
	return func(l *Ledger) { l.places = places }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// Ledger owns the history of every group it has seen.
type Ledger struct {
	dir     Directory
	places  money.Places
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu     sync.Mutex
	groups map[string]*groupLedger
}

// groupLedger is one group's history plus its cached simplified graph.
// A nil balances field means the cache is stale.
type groupLedger struct {
	mu          sync.RWMutex
	expenses    []models.Expense
	settlements []models.Settlement
	balances    calculator.Graph
}

// New creates an empty ledger backed by dir for membership checks.
func New(dir Directory, opts ...Option) *Ledger {
	l := &Ledger{
		dir:    dir,
		places: money.DefaultPlaces,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		groups: make(map[string]*groupLedger),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordExpense validates and splits an expense, then appends it to the
// group's history.
func (l *Ledger) RecordExpense(ctx context.Context, in ExpenseInput) (models.Expense, error) {
	expense, err := l.buildExpense(ctx, in)
	if err != nil {
		l.reject("record_expense", in.GroupID, err)
		return models.Expense{}, err
	}

	g := l.group(in.GroupID)
	g.mu.Lock()
	g.expenses = append(g.expenses, expense)
	g.balances = nil
	g.mu.Unlock()

	l.metrics.ExpenseRecorded(string(expense.SplitKind))
	l.logger.Info("Expense recorded",
		"group_id", expense.GroupID,
		"expense_id", expense.ID,
		"payer_id", expense.PayerID,
		"total", expense.Total.String(),
		"split_kind", expense.SplitKind,
		"participants", len(expense.Participants),
	)

	return expense.Clone(), nil
}

func (l *Ledger) buildExpense(ctx context.Context, in ExpenseInput) (models.Expense, error) {
	members, err := l.members(ctx, in.GroupID)
	if err != nil {
		return models.Expense{}, err
	}

	if !members[in.PayerID] {
		return models.Expense{}, fmt.Errorf("%w: payer %q in group %s", ErrNonMember, in.PayerID, in.GroupID)
	}
	for _, id := range in.Participants {
		if !members[id] {
			return models.Expense{}, fmt.Errorf("%w: participant %q in group %s", ErrNonMember, id, in.GroupID)
		}
	}

	policy, err := calculator.PolicyFor(in.Kind, l.places)
	if err != nil {
		return models.Expense{}, err
	}
	if err := policy.Validate(in.Total, in.Participants, in.Params); err != nil {
		return models.Expense{}, err
	}
	splits, err := policy.Compute(in.Total, in.Participants, in.Params)
	if err != nil {
		return models.Expense{}, err
	}

	expense := models.Expense{
		ID:          l.newID(),
		GroupID:     in.GroupID,
		PayerID:     in.PayerID,
		Description: in.Description,
		Total:       in.Total,
		SplitKind:   policy.Kind(),
		Splits:      splits,
		CreatedAt:   l.now().Unix(),
	}
	expense.Participants = append([]string(nil), in.Participants...)
	return expense, nil
}

// RecordSettlement appends a payment from one member to another. The amount
// need not match any outstanding balance.
func (l *Ledger) RecordSettlement(ctx context.Context, in SettlementInput) (models.Settlement, error) {
	settlement, err := l.buildSettlement(ctx, in)
	if err != nil {
		l.reject("record_settlement", in.GroupID, err)
		return models.Settlement{}, err
	}

	g := l.group(in.GroupID)
	g.mu.Lock()
	g.settlements = append(g.settlements, settlement)
	g.balances = nil
	g.mu.Unlock()

	l.metrics.SettlementRecorded()
	l.logger.Info("Settlement recorded",
		"group_id", settlement.GroupID,
		"settlement_id", settlement.ID,
		"from_id", settlement.FromID,
		"to_id", settlement.ToID,
		"amount", settlement.Amount.String(),
	)

	return settlement, nil
}

func (l *Ledger) buildSettlement(ctx context.Context, in SettlementInput) (models.Settlement, error) {
	members, err := l.members(ctx, in.GroupID)
	if err != nil {
		return models.Settlement{}, err
	}

	for _, id := range []string{in.FromID, in.ToID} {
		if !members[id] {
			return models.Settlement{}, fmt.Errorf("%w: %q in group %s", ErrNonMember, id, in.GroupID)
		}
	}
	if in.FromID == in.ToID {
		return models.Settlement{}, fmt.Errorf("%w: %q cannot settle with themselves", ErrInvalidAmount, in.FromID)
	}
	if !in.Amount.IsPositive() {
		return models.Settlement{}, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, in.Amount)
	}
	if err := money.CheckRange(in.Amount); err != nil {
		return models.Settlement{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !money.IsMinorUnit(in.Amount, l.places) {
		return models.Settlement{}, fmt.Errorf("%w: amount %s is finer than the minor unit", ErrInvalidAmount, in.Amount)
	}

	return models.Settlement{
		ID:        l.newID(),
		GroupID:   in.GroupID,
		FromID:    in.FromID,
		ToID:      in.ToID,
		Amount:    in.Amount,
		Note:      in.Note,
		CreatedAt: l.now().Unix(),
	}, nil
}

// History returns copies of the group's expenses and settlements in
// insertion order.
func (l *Ledger) History(ctx context.Context, groupID string) ([]models.Expense, []models.Settlement, error) {
	if _, err := l.members(ctx, groupID); err != nil {
		return nil, nil, err
	}

	expenses, settlements := l.group(groupID).snapshot()

	outExpenses := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		outExpenses[i] = e.Clone()
	}
	outSettlements := make([]models.Settlement, len(settlements))
	copy(outSettlements, settlements)

	return outExpenses, outSettlements, nil
}

// CheckGroup returns ErrUnknownGroup if the directory does not know groupID.
func (l *Ledger) CheckGroup(ctx context.Context, groupID string) error {
	_, err := l.members(ctx, groupID)
	return err
}

// members fetches the group's membership as a set.
func (l *Ledger) members(ctx context.Context, groupID string) (map[string]bool, error) {
	ids, err := l.dir.MembersOf(ctx, groupID)
	if errors.Is(err, storage.ErrGroupNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load members of group %s: %w", groupID, err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (l *Ledger) group(groupID string) *groupLedger {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.groups[groupID]
	if !ok {
		g = &groupLedger{}
		l.groups[groupID] = g
	}
	return g
}

func (l *Ledger) reject(operation, groupID string, err error) {
	reason := Reason(err)
	l.metrics.Rejected(operation, reason)
	l.logger.Warn("Ledger operation rejected",
		"operation", operation,
		"group_id", groupID,
		"reason", reason,
		"error", err,
	)
}

// snapshot returns the current history. Records are never mutated and the
// slices are only ever appended to, so the returned slices stay consistent
// after the lock is released.
func (g *groupLedger) snapshot() ([]models.Expense, []models.Settlement) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.expenses[:len(g.expenses):len(g.expenses)], g.settlements[:len(g.settlements):len(g.settlements)]
}
