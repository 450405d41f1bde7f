package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationKind classifies a caller-correctable error.
type ValidationKind string

const (
	InvalidAmount    ValidationKind = "InvalidAmount"
	MissingName      ValidationKind = "MissingName"
	PayerNotMember   ValidationKind = "PayerNotMember"
	SplitMismatch    ValidationKind = "SplitMismatch"
	EmptySplit       ValidationKind = "EmptySplit"
	MemberNotInGroup ValidationKind = "MemberNotInGroup"
	SameParty        ValidationKind = "SameParty"
	MissingParty     ValidationKind = "MissingParty"
	Overpayment      ValidationKind = "Overpayment"
	UnknownGroup     ValidationKind = "UnknownGroup"
	NotParticipant   ValidationKind = "NotParticipant"
	NothingPending   ValidationKind = "NothingPending"
)

// ValidationError is returned before any write when the input is invalid.
// It is never retried.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any ValidationError of the same kind, so
// errors.Is(err, ErrSplitMismatch) works regardless of the message.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidAmount    = &ValidationError{Kind: InvalidAmount}
	ErrMissingName      = &ValidationError{Kind: MissingName}
	ErrPayerNotMember   = &ValidationError{Kind: PayerNotMember}
	ErrSplitMismatch    = &ValidationError{Kind: SplitMismatch}
	ErrEmptySplit       = &ValidationError{Kind: EmptySplit}
	ErrMemberNotInGroup = &ValidationError{Kind: MemberNotInGroup}
	ErrSameParty        = &ValidationError{Kind: SameParty}
	ErrMissingParty     = &ValidationError{Kind: MissingParty}
	ErrOverpayment      = &ValidationError{Kind: Overpayment}
	ErrUnknownGroup     = &ValidationError{Kind: UnknownGroup}
	ErrNotParticipant   = &ValidationError{Kind: NotParticipant}
	ErrNothingPending   = &ValidationError{Kind: NothingPending}
)

func invalid(kind ValidationKind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError reports a failed store call. Nothing was written by the
// failing operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// BalanceDelta records that Debtor owes Creditor Amount more. A settlement
// is the delta with the payer as Creditor.
type BalanceDelta struct {
	Creditor string
	Debtor   string
	Amount   decimal.Decimal
}

func (d BalanceDelta) String() string {
	return fmt.Sprintf("%s owes %s %s", d.Debtor, d.Creditor, d.Amount.StringFixed(2))
}

// PartialFailure means the expense or settlement RecordID was stored but
// the balance updates in Pending were not applied. Finish them with
// Engine.ResumeBalanceUpdate(RecordID); do not record the expense again.
// Pending is informational.
type PartialFailure struct {
	Op       string
	RecordID string
	Pending  []BalanceDelta
	Err      error
}

func (e *PartialFailure) Error() string {
	parts := make([]string, len(e.Pending))
	for i, d := range e.Pending {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s: record %s stored, %d balance update(s) pending [%s]: %v",
		e.Op, e.RecordID, len(e.Pending), strings.Join(parts, "; "), e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }
