package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// fakeDirectory is an in-memory Directory.
type fakeDirectory struct {
	groups map[string][]string
	err    error
}

func (f *fakeDirectory) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	members, ok := f.groups[groupID]
	if !ok {
		return false, fmt.Errorf("%w: %s", storage.ErrGroupNotFound, groupID)
	}
	return slices.Contains(members, userID), nil
}

func (f *fakeDirectory) MembersOf(_ context.Context, groupID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	members, ok := f.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrGroupNotFound, groupID)
	}
	return slices.Clone(members), nil
}

func d(s string) decimal.Decimal {
	return money.MustParse(s)
}

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	dir := &fakeDirectory{groups: map[string][]string{
		"trip":  {"A", "B", "C"},
		"empty": {},
	}}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(dir, opts...)
}

func equal(groupID, payer, total string, participants ...string) ExpenseInput {
	return ExpenseInput{
		GroupID:      groupID,
		PayerID:      payer,
		Total:        d(total),
		Kind:         models.SplitEqual,
		Participants: participants,
	}
}

func TestRecordExpense(t *testing.T) {
	l := newTestLedger(t,
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		WithIDGenerator(func() string { return "exp-1" }),
	)
	ctx := context.Background()

	in := equal("trip", "A", "100.00", "A", "B", "C")
	in.Description = "Dinner"
	expense, err := l.RecordExpense(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "exp-1", expense.ID)
	assert.Equal(t, "trip", expense.GroupID)
	assert.Equal(t, "Dinner", expense.Description)
	assert.Equal(t, models.SplitEqual, expense.SplitKind)
	assert.Equal(t, int64(1700000000), expense.CreatedAt)
	assert.Equal(t, []string{"A", "B", "C"}, expense.Participants)
	assert.True(t, expense.Splits["A"].Equal(d("33.33")))
	assert.True(t, expense.Splits["B"].Equal(d("33.33")))
	assert.True(t, expense.Splits["C"].Equal(d("33.34")))
}

func TestRecordExpenseConservation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	inputs := []ExpenseInput{
		equal("trip", "A", "100.00", "A", "B", "C"),
		{
			GroupID: "trip", PayerID: "B", Total: d("100.00"), Kind: models.SplitPercentage,
			Participants: []string{"A", "B", "C"},
			Params: calculator.SplitParams{Percentages: map[string]decimal.Decimal{
				"A": d("33"), "B": d("33"), "C": d("34"),
			}},
		},
		{
			GroupID: "trip", PayerID: "C", Total: d("42.10"), Kind: models.SplitExact,
			Participants: []string{"A", "C"},
			Params: calculator.SplitParams{Amounts: map[string]decimal.Decimal{
				"A": d("40.00"), "C": d("2.10"),
			}},
		},
	}

	for _, in := range inputs {
		expense, err := l.RecordExpense(ctx, in)
		require.NoError(t, err, "kind %s", in.Kind)

		sum := decimal.Zero
		for _, v := range expense.Splits {
			sum = sum.Add(v)
		}
		assert.True(t, sum.Equal(expense.Total), "%s: splits sum to %s, want %s", in.Kind, sum, expense.Total)
	}
}

func TestRecordExpenseErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      ExpenseInput
		wantErr error
	}{
		{"unknown group", equal("nope", "A", "10.00", "A"), ErrUnknownGroup},
		{"payer not a member", equal("trip", "Z", "10.00", "A", "B"), ErrNonMember},
		{"participant not a member", equal("trip", "A", "10.00", "A", "Z"), ErrNonMember},
		{"no participants", equal("trip", "A", "10.00"), ErrInvalidSplit},
		{"non-positive total", equal("trip", "A", "0", "A", "B"), ErrInvalidSplit},
		{"unknown kind", ExpenseInput{GroupID: "trip", PayerID: "A", Total: d("1"), Kind: "SHARES", Participants: []string{"A"}}, ErrInvalidSplit},
		{
			"exact sum mismatch",
			ExpenseInput{
				GroupID: "trip", PayerID: "A", Total: d("10.00"), Kind: models.SplitExact,
				Participants: []string{"A", "B"},
				Params:       calculator.SplitParams{Amounts: map[string]decimal.Decimal{"A": d("5"), "B": d("4")}},
			},
			ErrInvalidSplit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			_, err := l.RecordExpense(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			if errors.Is(tt.wantErr, ErrUnknownGroup) {
				return
			}
			expenses, _, err := l.History(context.Background(), "trip")
			require.NoError(t, err)
			assert.Empty(t, expenses, "failed expense must not be appended")
		})
	}
}

func TestMembershipRejectionLeavesHistoryUnchanged(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordExpense(ctx, equal("trip", "A", "30.00", "A", "B"))
	require.NoError(t, err)

	_, err = l.RecordExpense(ctx, equal("trip", "Mallory", "30.00", "A", "B"))
	assert.ErrorIs(t, err, ErrNonMember)

	expenses, settlements, err := l.History(ctx, "trip")
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
	assert.Empty(t, settlements)
}

func TestRecordSettlementErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      SettlementInput
		wantErr error
	}{
		{"unknown group", SettlementInput{GroupID: "nope", FromID: "A", ToID: "B", Amount: d("1")}, ErrUnknownGroup},
		{"from not a member", SettlementInput{GroupID: "trip", FromID: "Z", ToID: "B", Amount: d("1")}, ErrNonMember},
		{"to not a member", SettlementInput{GroupID: "trip", FromID: "A", ToID: "Z", Amount: d("1")}, ErrNonMember},
		{"self settlement", SettlementInput{GroupID: "trip", FromID: "A", ToID: "A", Amount: d("1")}, ErrInvalidAmount},
		{"zero amount", SettlementInput{GroupID: "trip", FromID: "A", ToID: "B", Amount: d("0")}, ErrInvalidAmount},
		{"negative amount", SettlementInput{GroupID: "trip", FromID: "A", ToID: "B", Amount: d("-5")}, ErrInvalidAmount},
		{"sub-cent amount", SettlementInput{GroupID: "trip", FromID: "A", ToID: "B", Amount: d("0.001")}, ErrInvalidAmount},
		{"huge amount", SettlementInput{GroupID: "trip", FromID: "A", ToID: "B", Amount: decimal.New(1, 3000000)}, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			_, err := l.RecordSettlement(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDirectoryFailureIsNotUnknownGroup(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("disk on fire")}
	l := New(dir, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := l.RecordExpense(context.Background(), equal("trip", "A", "1.00", "A"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownGroup)
	assert.Equal(t, "internal", Reason(err))
}

func TestBidirectionalCancellation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordExpense(ctx, equal("trip", "B", "50.00", "A"))
	require.NoError(t, err)
	_, err = l.RecordExpense(ctx, equal("trip", "A", "20.00", "B"))
	require.NoError(t, err)

	g, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "A", edges[0].From)
	assert.Equal(t, "B", edges[0].To)
	assert.True(t, edges[0].Amount.Equal(d("30")))
	_, reverse := g["B"]["A"]
	assert.False(t, reverse)
}

func TestSettlements(t *testing.T) {
	tests := []struct {
		name   string
		settle string
		wantA  map[string]string
	}{
		{name: "full settlement clears balance", settle: "40.00", wantA: map[string]string{}},
		{name: "partial settlement", settle: "15.00", wantA: map[string]string{"B": "-25"}},
		{name: "over-settlement reverses direction", settle: "60.00", wantA: map[string]string{"B": "20"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			ctx := context.Background()

			// A owes B 40.00
			_, err := l.RecordExpense(ctx, equal("trip", "B", "40.00", "A"))
			require.NoError(t, err)

			_, err = l.RecordSettlement(ctx, SettlementInput{GroupID: "trip", FromID: "A", ToID: "B", Amount: d(tt.settle)})
			require.NoError(t, err)

			view, err := l.MemberBalance(ctx, "A", "trip")
			require.NoError(t, err)
			require.Len(t, view, len(tt.wantA))
			for id, want := range tt.wantA {
				assert.True(t, view[id].Equal(d(want)), "%s: got %s, want %s", id, view[id], want)
			}
		})
	}
}

func TestDinnerAndCab(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	dinner := equal("trip", "A", "90.00", "A", "B", "C")
	dinner.Description = "dinner"
	_, err := l.RecordExpense(ctx, dinner)
	require.NoError(t, err)

	cab := equal("trip", "B", "30.00", "A", "B", "C")
	cab.Description = "cab"
	_, err = l.RecordExpense(ctx, cab)
	require.NoError(t, err)

	g, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, g.Amount("B", "A").Equal(d("20")))
	assert.True(t, g.Amount("C", "A").Equal(d("30")))
	assert.True(t, g.Amount("C", "B").Equal(d("10")))
	assert.Len(t, g.Edges(), 3)

	viewA, err := l.MemberBalance(ctx, "A", "trip")
	require.NoError(t, err)
	require.Len(t, viewA, 2)
	assert.True(t, viewA["B"].Equal(d("20.00")))
	assert.True(t, viewA["C"].Equal(d("30.00")))

	plan, err := l.SettlementPlan(ctx, "trip")
	require.NoError(t, err)
	total := decimal.Zero
	for _, e := range plan {
		total = total.Add(e.Amount)
	}
	assert.True(t, total.Equal(d("50")), "plan moves %s", total)
}

func TestMemberBalanceErrors(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.MemberBalance(ctx, "A", "nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)

	_, err = l.MemberBalance(ctx, "Z", "trip")
	assert.ErrorIs(t, err, ErrNonMember)

	view, err := l.MemberBalance(ctx, "A", "trip")
	require.NoError(t, err)
	assert.Empty(t, view, "no history means settled up")
}

func TestGroupBalancesUnknownGroup(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GroupBalances(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)

	_, _, err = l.History(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	expense, err := l.RecordExpense(ctx, equal("trip", "A", "30.00", "A", "B", "C"))
	require.NoError(t, err)
	expense.Splits["B"] = d("999")
	expense.Participants[0] = "Z"

	g, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	g["B"]["A"] = d("999")
	delete(g, "C")

	expenses, _, err := l.History(ctx, "trip")
	require.NoError(t, err)
	expenses[0].Splits["C"] = d("999")

	again, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, again.Amount("B", "A").Equal(d("10")))
	assert.True(t, again.Amount("C", "A").Equal(d("10")))

	expenses, _, err = l.History(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, expenses[0].Splits["B"].Equal(d("10")))
	assert.True(t, expenses[0].Splits["C"].Equal(d("10")))
	assert.Equal(t, "A", expenses[0].Participants[0])
}

func TestBalancesAreCachedUntilWrite(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	l := newTestLedger(t, WithMetrics(m))
	ctx := context.Background()

	_, err := l.RecordExpense(ctx, equal("trip", "A", "30.00", "A", "B", "C"))
	require.NoError(t, err)

	first, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	second, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NettingRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceCacheHits))

	_, err = l.RecordSettlement(ctx, SettlementInput{GroupID: "trip", FromID: "B", ToID: "A", Amount: d("10")})
	require.NoError(t, err)

	third, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NettingRuns))
	assert.True(t, third.Amount("B", "A").IsZero())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpensesRecorded.WithLabelValues("EQUAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettlementsRecorded))

	_, err = l.RecordSettlement(ctx, SettlementInput{GroupID: "trip", FromID: "B", ToID: "B", Amount: d("10")})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("record_settlement", "invalid_amount")))
}

func TestConcurrentWritesAndReads(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if i%5 == 4 {
					_, err := l.RecordSettlement(ctx, SettlementInput{GroupID: "trip", FromID: "C", ToID: "A", Amount: d("1.00")})
					assert.NoError(t, err)
					continue
				}
				_, err := l.RecordExpense(ctx, equal("trip", "A", "10.00", "A", "B", "C"))
				assert.NoError(t, err)
			}
		}(w)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				g, err := l.GroupBalances(ctx, "trip")
				if assert.NoError(t, err) {
					_, reverse := g["A"]["C"]
					assert.False(t, reverse && g.Amount("C", "A").IsPositive())
				}
			}
		}()
	}
	wg.Wait()

	expenses, settlements, err := l.History(ctx, "trip")
	require.NoError(t, err)
	assert.Len(t, expenses, writers*perWriter*4/5)
	assert.Len(t, settlements, writers*perWriter/5)

	// Each expense: B and C owe A 3.33 each. Each settlement: C pays A 1.00.
	g, err := l.GroupBalances(ctx, "trip")
	require.NoError(t, err)
	n := decimal.NewFromInt(int64(len(expenses)))
	s := decimal.NewFromInt(int64(len(settlements)))
	assert.True(t, g.Amount("B", "A").Equal(d("3.33").Mul(n)))
	assert.True(t, g.Amount("C", "A").Equal(d("3.34").Mul(n).Sub(s)))
}

func TestGroupsAreIndependent(t *testing.T) {
	dir := &fakeDirectory{groups: map[string][]string{
		"g1": {"A", "B"},
		"g2": {"A", "B"},
	}}
	l := New(dir, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()

	_, err := l.RecordExpense(ctx, equal("g1", "A", "10.00", "B"))
	require.NoError(t, err)

	g2, err := l.GroupBalances(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, g2.Edges())

	g1, err := l.GroupBalances(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, g1.Amount("B", "A").Equal(d("10")))
}

func TestSummaries(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordExpense(ctx, equal("trip", "A", "90.00", "A", "B", "C"))
	require.NoError(t, err)
	_, err = l.RecordSettlement(ctx, SettlementInput{GroupID: "trip", FromID: "B", ToID: "A", Amount: d("30")})
	require.NoError(t, err)

	summaries, err := l.Summaries(ctx, "trip")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "A", summaries[0].Member)
	assert.True(t, summaries[0].Net.Equal(d("30")))
	assert.True(t, summaries[1].Net.IsZero())
	assert.True(t, summaries[2].Net.Equal(d("-30")))

	_, err = l.Summaries(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}
