package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// LedgerService implements the Connect LedgerService on top of a ledger.
type LedgerService struct {
	ledger *ledger.Ledger
	places money.Places
}

// NewLedgerService creates a LedgerService. Amounts in responses are
// formatted with the given number of decimal places.
func NewLedgerService(l *ledger.Ledger, places money.Places) *LedgerService {
	return &LedgerService{ledger: l, places: places}
}

// RecordExpense splits an expense and appends it to the group's ledger.
func (s *LedgerService) RecordExpense(ctx context.Context, req *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error) {
	msg := req.Msg
	slog.Info("RecordExpense request received",
		"group_id", msg.GroupID,
		"payer_id", msg.PayerID,
		"total", msg.Total,
		"split_kind", msg.SplitKind,
		"participants_count", len(msg.ParticipantIDs),
	)

	in, err := expenseInput(msg)
	if err != nil {
		err = s.unknownGroupFirst(ctx, msg.GroupID, err)
		slog.Error("RecordExpense failed - bad request", "group_id", msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	expense, err := s.ledger.RecordExpense(ctx, in)
	if err != nil {
		slog.Error("RecordExpense failed", "group_id", msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RecordExpenseResponse{
		Expense: s.expenseToWire(expense),
	}), nil
}

// RecordSettlement appends a direct payment between two members.
func (s *LedgerService) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	msg := req.Msg
	slog.Info("RecordSettlement request received",
		"group_id", msg.GroupID,
		"from_id", msg.FromID,
		"to_id", msg.ToID,
		"amount", msg.Amount,
	)

	amount, err := money.Parse(msg.Amount)
	if err != nil {
		err = s.unknownGroupFirst(ctx, msg.GroupID, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err))
		slog.Error("RecordSettlement failed - bad amount", "group_id", msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	settlement, err := s.ledger.RecordSettlement(ctx, ledger.SettlementInput{
		GroupID: msg.GroupID,
		FromID:  msg.FromID,
		ToID:    msg.ToID,
		Amount:  amount,
		Note:    msg.Note,
	})
	if err != nil {
		slog.Error("RecordSettlement failed", "group_id", msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RecordSettlementResponse{
		Settlement: s.settlementToWire(settlement),
	}), nil
}

// GetHistory returns the group's expenses and settlements in insertion order.
func (s *LedgerService) GetHistory(ctx context.Context, req *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error) {
	groupID := req.Msg.GroupID
	slog.Info("GetHistory request received", "group_id", groupID)

	expenses, settlements, err := s.ledger.History(ctx, groupID)
	if err != nil {
		slog.Error("GetHistory failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	resp := &GetHistoryResponse{
		Expenses:    make([]*Expense, len(expenses)),
		Settlements: make([]*Settlement, len(settlements)),
	}
	for i, e := range expenses {
		resp.Expenses[i] = s.expenseToWire(e)
	}
	for i, st := range settlements {
		resp.Settlements[i] = s.settlementToWire(st)
	}

	slog.Info("GetHistory successful",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"settlements_count", len(settlements),
	)

	return connect.NewResponse(resp), nil
}

// GetGroupBalances returns the group's netted debts and per-member totals.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	graph, err := s.ledger.GroupBalances(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}
	summaries, err := s.ledger.Summaries(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances failed - could not summarize", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	debts := s.edgesToWire(graph.Edges())
	balances := make([]*MemberBalance, len(summaries))
	for i, sum := range summaries {
		balances[i] = &MemberBalance{
			MemberID:   sum.Member,
			TotalPaid:  money.Format(sum.TotalPaid, s.places),
			TotalOwed:  money.Format(sum.TotalOwed, s.places),
			NetBalance: money.Format(sum.Net, s.places),
		}
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"members_count", len(balances),
		"debts_count", len(debts),
	)

	return connect.NewResponse(&GetGroupBalancesResponse{
		Debts:          debts,
		MemberBalances: balances,
	}), nil
}

// GetMemberBalance returns one member's signed balance with every
// counterparty they have an outstanding debt with.
func (s *LedgerService) GetMemberBalance(ctx context.Context, req *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error) {
	msg := req.Msg
	slog.Info("GetMemberBalance request received", "group_id", msg.GroupID, "user_id", msg.UserID)

	view, err := s.ledger.MemberBalance(ctx, msg.UserID, msg.GroupID)
	if err != nil {
		slog.Error("GetMemberBalance failed", "group_id", msg.GroupID, "user_id", msg.UserID, "error", err)
		return nil, toConnectError(err)
	}

	balances := make([]*CounterpartyBalance, 0, len(view))
	for _, id := range slices.Sorted(maps.Keys(view)) {
		balances = append(balances, &CounterpartyBalance{
			CounterpartyID: id,
			Amount:         money.Format(view[id], s.places),
		})
	}

	return connect.NewResponse(&GetMemberBalanceResponse{
		UserID:    msg.UserID,
		Balances:  balances,
		SettledUp: len(balances) == 0,
	}), nil
}

// GetSettlementPlan suggests transfers that would settle the whole group.
func (s *LedgerService) GetSettlementPlan(ctx context.Context, req *connect.Request[GetSettlementPlanRequest]) (*connect.Response[GetSettlementPlanResponse], error) {
	groupID := req.Msg.GroupID
	slog.Info("GetSettlementPlan request received", "group_id", groupID)

	plan, err := s.ledger.SettlementPlan(ctx, groupID)
	if err != nil {
		slog.Error("GetSettlementPlan failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetSettlementPlan successful", "group_id", groupID, "transfers_count", len(plan))

	return connect.NewResponse(&GetSettlementPlanResponse{
		Transfers: s.edgesToWire(plan),
	}), nil
}

// unknownGroupFirst reports an unknown group in preference to badRequest, so
// a request for a missing group is NotFound however malformed its body is.
func (s *LedgerService) unknownGroupFirst(ctx context.Context, groupID string, badRequest error) error {
	if err := s.ledger.CheckGroup(ctx, groupID); errors.Is(err, ledger.ErrUnknownGroup) {
		return err
	}
	return badRequest
}

func expenseInput(msg *RecordExpenseRequest) (ledger.ExpenseInput, error) {
	kind, err := calculator.ParseSplitKind(msg.SplitKind)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	total, err := money.Parse(msg.Total)
	if err != nil {
		return ledger.ExpenseInput{}, fmt.Errorf("%w: total: %v", ledger.ErrInvalidSplit, err)
	}

	var params calculator.SplitParams
	switch kind {
	case models.SplitExact:
		if params.Amounts, err = parseValues(msg.Amounts, "amount"); err != nil {
			return ledger.ExpenseInput{}, err
		}
	case models.SplitPercentage:
		if params.Percentages, err = parseValues(msg.Percentages, "percentage"); err != nil {
			return ledger.ExpenseInput{}, err
		}
	}

	return ledger.ExpenseInput{
		GroupID:      msg.GroupID,
		PayerID:      msg.PayerID,
		Description:  msg.Description,
		Total:        total,
		Kind:         kind,
		Participants: msg.ParticipantIDs,
		Params:       params,
	}, nil
}

func parseValues(raw map[string]string, what string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for id, v := range raw {
		d, err := money.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s for %q: %v", ledger.ErrInvalidSplit, what, id, err)
		}
		out[id] = d
	}
	return out, nil
}

func (s *LedgerService) expenseToWire(e models.Expense) *Expense {
	shares := make([]Share, len(e.Participants))
	for i, id := range e.Participants {
		shares[i] = Share{MemberID: id, Amount: money.Format(e.Splits[id], s.places)}
	}
	return &Expense{
		ID:             e.ID,
		GroupID:        e.GroupID,
		PayerID:        e.PayerID,
		Description:    e.Description,
		Total:          money.Format(e.Total, s.places),
		SplitKind:      string(e.SplitKind),
		ParticipantIDs: e.Participants,
		Shares:         shares,
		CreatedAt:      e.CreatedAt,
	}
}

func (s *LedgerService) settlementToWire(st models.Settlement) *Settlement {
	return &Settlement{
		ID:        st.ID,
		GroupID:   st.GroupID,
		FromID:    st.FromID,
		ToID:      st.ToID,
		Amount:    money.Format(st.Amount, s.places),
		Note:      st.Note,
		CreatedAt: st.CreatedAt,
	}
}

func (s *LedgerService) edgesToWire(edges []calculator.DebtEdge) []*DebtEdge {
	out := make([]*DebtEdge, len(edges))
	for i, e := range edges {
		out[i] = &DebtEdge{From: e.From, To: e.To, Amount: money.Format(e.Amount, s.places)}
	}
	return out
}
