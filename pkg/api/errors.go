package api

import (
	"encoding/json"
	"errors"

	"connectrpc.com/connect"
)

// Error metadata keys set on an Aborted error when a write was stored but
// its balance step did not finish.
const (
	// PendingRecordKey carries the ID of the stored expense or settlement.
	PendingRecordKey = "Splitledger-Pending-Record"

	// PendingDeltasKey carries the JSON-encoded balance deltas left
	// unapplied. It is informational; retries only need the record ID.
	PendingDeltasKey = "Splitledger-Pending-Deltas"
)

// WithPendingRecord attaches the stored record ID and its unapplied deltas
// to err.
func WithPendingRecord(err *connect.Error, recordID string, pending []BalanceDelta) *connect.Error {
	if recordID != "" {
		err.Meta().Set(PendingRecordKey, recordID)
	}
	if len(pending) == 0 {
		return err
	}
	data, mErr := json.Marshal(pending)
	if mErr != nil {
		return err
	}
	err.Meta().Set(PendingDeltasKey, string(data))
	return err
}

// PendingRecord extracts the record ID attached by WithPendingRecord. Pass
// it to RetryBalanceUpdate to finish the write.
func PendingRecord(err error) (string, bool) {
	connectErr, ok := asConnectError(err)
	if !ok {
		return "", false
	}
	id := connectErr.Meta().Get(PendingRecordKey)
	return id, id != ""
}

// PendingDeltas extracts the deltas attached by WithPendingRecord.
func PendingDeltas(err error) ([]BalanceDelta, bool) {
	connectErr, ok := asConnectError(err)
	if !ok {
		return nil, false
	}
	raw := connectErr.Meta().Get(PendingDeltasKey)
	if raw == "" {
		return nil, false
	}
	var pending []BalanceDelta
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, false
	}
	return pending, true
}

func asConnectError(err error) (*connect.Error, bool) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return nil, false
	}
	return connectErr, true
}
