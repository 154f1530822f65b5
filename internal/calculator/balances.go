package calculator

import (
	"cmp"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Graph maps debtor -> creditor -> amount owed.
type Graph map[string]map[string]decimal.Decimal

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// MemberSummary aggregates one member's activity across a group's history.
type MemberSummary struct {
	Member    string
	TotalPaid decimal.Decimal // Expenses paid plus settlements sent
	TotalOwed decimal.Decimal // Own shares plus settlements received
	Net       decimal.Decimal // Positive = owed money, Negative = owes money
}

func (g Graph) add(from, to string, amount decimal.Decimal) {
	row, ok := g[from]
	if !ok {
		row = make(map[string]decimal.Decimal)
		g[from] = row
	}
	row[to] = row[to].Add(amount)
}

// Amount returns what from owes to, or zero.
func (g Graph) Amount(from, to string) decimal.Decimal {
	return g[from][to]
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	c := make(Graph, len(g))
	for from, row := range g {
		c[from] = maps.Clone(row)
	}
	return c
}

// Equal reports whether both graphs hold the same edges with equal amounts.
func (g Graph) Equal(other Graph) bool {
	a, b := g.Edges(), other.Edges()
	return slices.EqualFunc(a, b, func(x, y DebtEdge) bool {
		return x.From == y.From && x.To == y.To && x.Amount.Equal(y.Amount)
	})
}

// Edges lists every non-zero edge ordered by (From, To).
func (g Graph) Edges() []DebtEdge {
	var edges []DebtEdge
	for from, row := range g {
		for to, amount := range row {
			if amount.IsZero() {
				continue
			}
			edges = append(edges, DebtEdge{From: from, To: to, Amount: amount})
		}
	}
	slices.SortFunc(edges, compareEdges)
	return edges
}

// RawGraph replays a group's history into the unsimplified debt graph.
// Each non-payer share adds owed[member][payer]; each settlement subtracts
// owed[from][to]. Entries may be negative until simplified.
func RawGraph(expenses []models.Expense, settlements []models.Settlement) Graph {
	raw := make(Graph)
	for _, expense := range expenses {
		for member, amount := range expense.Splits {
			if member == expense.PayerID {
				continue
			}
			raw.add(member, expense.PayerID, amount)
		}
	}
	for _, s := range settlements {
		raw.add(s.FromID, s.ToID, s.Amount.Neg())
	}
	return raw
}

// Simplify nets every unordered pair into at most one positive edge.
// Pairs whose net is zero have no edge at all.
func Simplify(raw Graph) Graph {
	members := make(map[string]struct{})
	for from, row := range raw {
		members[from] = struct{}{}
		for to := range row {
			members[to] = struct{}{}
		}
	}
	ids := slices.Sorted(maps.Keys(members))

	simplified := make(Graph)
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			net := raw.Amount(a, b).Sub(raw.Amount(b, a))
			switch net.Sign() {
			case 1:
				simplified.add(a, b, net)
			case -1:
				simplified.add(b, a, net.Neg())
			}
		}
	}
	return simplified
}

// NetGroup replays history and simplifies it in one pass.
func NetGroup(expenses []models.Expense, settlements []models.Settlement) Graph {
	return Simplify(RawGraph(expenses, settlements))
}

// MemberView projects a simplified graph onto one member. A positive value
// means the counterparty owes member; a negative value means member owes the
// counterparty. A settled-up member gets an empty map.
func MemberView(g Graph, member string) map[string]decimal.Decimal {
	view := make(map[string]decimal.Decimal)
	for to, amount := range g[member] {
		view[to] = view[to].Sub(amount)
	}
	for from, row := range g {
		if from == member {
			continue
		}
		if amount, ok := row[member]; ok {
			view[from] = view[from].Add(amount)
		}
	}
	for id, amount := range view {
		if amount.IsZero() {
			delete(view, id)
		}
	}
	return view
}

// Summaries computes paid/owed totals per member.
//
// Algorithm:
// - For each expense: payer contributed +total, each participant owes their split
// - For each settlement: sender's paid side grows, receiver's owed side grows
// - Net = paid - owed
func Summaries(expenses []models.Expense, settlements []models.Settlement) []MemberSummary {
	summaries := make(map[string]*MemberSummary)
	get := func(id string) *MemberSummary {
		s, ok := summaries[id]
		if !ok {
			s = &MemberSummary{Member: id}
			summaries[id] = s
		}
		return s
	}

	for _, expense := range expenses {
		payer := get(expense.PayerID)
		payer.TotalPaid = payer.TotalPaid.Add(expense.Total)
		for member, amount := range expense.Splits {
			m := get(member)
			m.TotalOwed = m.TotalOwed.Add(amount)
		}
	}
	for _, s := range settlements {
		from := get(s.FromID)
		from.TotalPaid = from.TotalPaid.Add(s.Amount)
		to := get(s.ToID)
		to.TotalOwed = to.TotalOwed.Add(s.Amount)
	}

	result := make([]MemberSummary, 0, len(summaries))
	for _, s := range summaries {
		s.Net = s.TotalPaid.Sub(s.TotalOwed)
		result = append(result, *s)
	}
	slices.SortFunc(result, func(a, b MemberSummary) int {
		return cmp.Compare(a.Member, b.Member)
	})
	return result
}

// SettlementPlan suggests transfers that zero every net balance, matching
// the largest debtors with the largest creditors greedily. It ignores the
// pairwise structure, so a suggested transfer may connect two members who
// never shared an expense.
func SettlementPlan(summaries []MemberSummary) []DebtEdge {
	type party struct {
		id      string
		balance decimal.Decimal // always positive
	}

	var creditors, debtors []party
	for _, s := range summaries {
		switch s.Net.Sign() {
		case 1:
			creditors = append(creditors, party{id: s.Member, balance: s.Net})
		case -1:
			debtors = append(debtors, party{id: s.Member, balance: s.Net.Neg()})
		}
	}
	byBalance := func(a, b party) int {
		if c := b.balance.Cmp(a.balance); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	}
	slices.SortFunc(creditors, byBalance)
	slices.SortFunc(debtors, byBalance)

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := decimal.Min(debtor.balance, creditor.balance)
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{From: debtor.id, To: creditor.id, Amount: amount})
		}

		debtor.balance = debtor.balance.Sub(amount)
		creditor.balance = creditor.balance.Sub(amount)

		// Move to next debtor/creditor if fully settled
		if !debtor.balance.IsPositive() {
			i++
		}
		if !creditor.balance.IsPositive() {
			j++
		}
	}
	return edges
}

func compareEdges(a, b DebtEdge) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	return cmp.Compare(a.To, b.To)
}
