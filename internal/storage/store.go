// Package storage provides the group directory the ledger consults for
// membership.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrGroupNotFound is returned for any lookup of a group id the directory
// does not know.
var ErrGroupNotFound = errors.New("group not found")

// ErrInvalidMember is returned when a member id is empty.
var ErrInvalidMember = errors.New("invalid member id")

// Store defines the interface for group directory operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger or the service layer.
type Store interface {
	// CreateGroup persists a new group.
	// The group.ID and group.CreatedAt fields will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by its ID.
	// Returns ErrGroupNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns every group, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMembers adds members to a group, ignoring ones already present.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error

	// IsMember reports whether userID belongs to the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// MembersOf returns the group's members in insertion order.
	MembersOf(ctx context.Context, groupID string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
