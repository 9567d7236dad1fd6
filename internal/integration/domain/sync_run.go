package domain

import "time"

// SyncDirection is the direction of a sync run.
type SyncDirection string

const (
	DirectionPush SyncDirection = "push"
	DirectionPull SyncDirection = "pull"
)

// SyncFailure records one item that failed during a batch sync.
type SyncFailure struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// SyncRun is the result of one sync invocation. It is returned to the
// caller for reporting and retry triage, not persisted.
type SyncRun struct {
	Provider  Provider      `json:"provider"`
	Direction SyncDirection `json:"direction"`
	StartedAt time.Time     `json:"started_at"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    []SyncFailure `json:"failed"`
}

// NewSyncRun starts an empty run record.
func NewSyncRun(provider Provider, direction SyncDirection) *SyncRun {
	return &SyncRun{
		Provider:  provider,
		Direction: direction,
		StartedAt: time.Now(),
		Failed:    []SyncFailure{},
	}
}

// RecordSuccess counts one processed item that succeeded.
func (r *SyncRun) RecordSuccess() {
	r.Processed++
	r.Succeeded++
}

// RecordSkip counts one processed item that needed no work.
func (r *SyncRun) RecordSkip() {
	r.Processed++
}

// RecordFailure counts one processed item that failed, keeping the offending
// id and reason so the batch can continue.
func (r *SyncRun) RecordFailure(itemID string, err error) {
	r.Processed++
	r.Failed = append(r.Failed, SyncFailure{ItemID: itemID, Reason: err.Error()})
}
