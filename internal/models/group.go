package models

// Group represents a closed set of members that share expenses.
// Membership is owned by the group directory, not by the ledger.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	// Members is the list of member identifiers in insertion order.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
