package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/storage"
)

// toConnectError maps domain errors onto Connect codes. Anything unexpected
// becomes CodeInternal.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, ledger.ErrUnknownGroup), errors.Is(err, storage.ErrGroupNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ledger.ErrNonMember),
		errors.Is(err, ledger.ErrInvalidSplit),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, storage.ErrInvalidMember):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
