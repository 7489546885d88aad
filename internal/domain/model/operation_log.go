package model

import "time"

// Outcome classifies the terminal result of one attempted action.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeFiltered Outcome = "filtered"
	OutcomeError    Outcome = "error"
)

// OperationLog is one append-only audit entry. Item-level entries record the
// result of an action on a concrete item; source-level entries (ItemID zero)
// record fetch failures and permission flips. Entries carry a snapshot of the
// channel id and survive removal of their source configuration.
type OperationLog struct {
	ID        string // ULID, time-sortable
	SourceID  string
	ChannelID int64
	ItemID    int64 // zero for source-level entries
	Action    SourceAction
	Outcome   Outcome
	Detail    map[string]any
	CreatedAt time.Time
}
