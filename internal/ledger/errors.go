package ledger

import (
	"errors"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/storage"
)

// Every error returned by the ledger wraps exactly one of these.
var (
	ErrUnknownGroup  = errors.New("unknown group")
	ErrNonMember     = errors.New("not a member of the group")
	ErrInvalidSplit  = calculator.ErrInvalidSplit
	ErrInvalidAmount = errors.New("invalid amount")
)

// Reason returns a short label for err, used in logs and metrics. Directory
// errors that reach callers outside the ledger are labelled too.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownGroup), errors.Is(err, storage.ErrGroupNotFound):
		return "unknown_group"
	case errors.Is(err, storage.ErrInvalidMember):
		return "invalid_member"
	case errors.Is(err, ErrNonMember):
		return "non_member"
	case errors.Is(err, ErrInvalidSplit):
		return "invalid_split"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "internal"
	}
}
