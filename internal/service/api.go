package service

// Wire types for the splitledger.v1 services. Amounts are decimal strings
// ("12.50") so that no client ever has to round-trip money through a float.

// Share is one participant's part of an expense.
type Share struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

// Expense is the wire form of models.Expense.
type Expense struct {
	ID             string   `json:"id"`
	GroupID        string   `json:"group_id"`
	PayerID        string   `json:"payer_id"`
	Description    string   `json:"description,omitempty"`
	Total          string   `json:"total"`
	SplitKind      string   `json:"split_kind"`
	ParticipantIDs []string `json:"participant_ids"`
	Shares         []Share  `json:"shares"`
	CreatedAt      int64    `json:"created_at"`
}

// Settlement is the wire form of models.Settlement.
type Settlement struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// DebtEdge says From owes To the given amount.
type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// MemberBalance aggregates one member's activity in a group.
type MemberBalance struct {
	MemberID   string `json:"member_id"`
	TotalPaid  string `json:"total_paid"`
	TotalOwed  string `json:"total_owed"`
	NetBalance string `json:"net_balance"` // Positive = owed money, Negative = owes money
}

// CounterpartyBalance is signed from the requesting member's side.
type CounterpartyBalance struct {
	CounterpartyID string `json:"counterparty_id"`
	Amount         string `json:"amount"` // Positive = counterparty owes you
}

// Group is the wire form of models.Group.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

type RecordExpenseRequest struct {
	GroupID        string   `json:"group_id"`
	PayerID        string   `json:"payer_id"`
	Description    string   `json:"description,omitempty"`
	Total          string   `json:"total"`
	SplitKind      string   `json:"split_kind"`
	ParticipantIDs []string `json:"participant_ids"`

	// Amounts is required for EXACT splits.
	Amounts map[string]string `json:"amounts,omitempty"`
	// Percentages is required for PERCENTAGE splits.
	Percentages map[string]string `json:"percentages,omitempty"`
}

type RecordExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type RecordSettlementRequest struct {
	GroupID string `json:"group_id"`
	FromID  string `json:"from_id"`
	ToID    string `json:"to_id"`
	Amount  string `json:"amount"`
	Note    string `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type GetHistoryRequest struct {
	GroupID string `json:"group_id"`
}

type GetHistoryResponse struct {
	Expenses    []*Expense    `json:"expenses"`
	Settlements []*Settlement `json:"settlements"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupBalancesResponse struct {
	Debts          []*DebtEdge      `json:"debts"`
	MemberBalances []*MemberBalance `json:"member_balances"`
}

type GetMemberBalanceRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type GetMemberBalanceResponse struct {
	UserID    string                 `json:"user_id"`
	Balances  []*CounterpartyBalance `json:"balances"`
	SettledUp bool                   `json:"settled_up"`
}

type GetSettlementPlanRequest struct {
	GroupID string `json:"group_id"`
}

type GetSettlementPlanResponse struct {
	Transfers []*DebtEdge `json:"transfers"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddGroupMembersRequest struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}

type AddGroupMembersResponse struct {
	Group *Group `json:"group"`
}
