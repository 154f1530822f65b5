package models

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// SplitKind names the policy used to divide an expense.
type SplitKind string

const (
	SplitEqual      SplitKind = "EQUAL"
	SplitExact      SplitKind = "EXACT"
	SplitPercentage SplitKind = "PERCENTAGE"
)

// Expense represents one member's payment split among group members.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// PayerID is the member who paid the full amount.
	PayerID string

	// Description is a free-form label (e.g., "Dinner", "Cab").
	Description string

	// Total is the amount paid, always positive.
	Total decimal.Decimal

	// SplitKind is the policy that produced Splits.
	SplitKind SplitKind

	// Participants is the ordered participant list the policy was applied to.
	// The last participant absorbs any rounding remainder.
	Participants []string

	// Splits maps each participant to their share. Shares sum to Total exactly.
	// The payer's own share, if any, creates no debt.
	Splits map[string]decimal.Decimal

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Clone returns a deep copy of the expense.
func (e Expense) Clone() Expense {
	e.Participants = slices.Clone(e.Participants)
	e.Splits = maps.Clone(e.Splits)
	return e
}
