package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

var (
	errNotMember     = errors.New("you are not a member of this group")
	errNotParty      = errors.New("you must be the payer or the payee")
	errNothingOwed   = errors.New("this user does not owe you anything")
	errNoCounterpart = errors.New("group_id or friend_id is required")
	errUnknownSplit  = errors.New("split_type must be equal, custom or itemized")
	errNoRecord      = errors.New("record_id is required")
)

// toConnectError maps ledger and storage errors to Connect codes.
//
//   - *ledger.ValidationError -> InvalidArgument (Overpayment and
//     NothingPending: FailedPrecondition, NotParticipant: PermissionDenied)
//   - *ledger.PartialFailure  -> Aborted, with the record ID attached
//   - *ledger.PersistenceError and storage.ErrConflict -> Unavailable
//   - storage.ErrNotFound -> NotFound
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var (
		validation *ledger.ValidationError
		partial    *ledger.PartialFailure
		persist    *ledger.PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		switch validation.Kind {
		case ledger.Overpayment, ledger.NothingPending:
			return connect.NewError(connect.CodeFailedPrecondition, err)
		case ledger.NotParticipant:
			return connect.NewError(connect.CodePermissionDenied, err)
		}
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &partial):
		return api.WithPendingRecord(connect.NewError(connect.CodeAborted, err), partial.RecordID, toAPIDeltas(partial.Pending))
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.As(err, &persist), errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
