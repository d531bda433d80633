package types

import "time"

// ResetMarkerID is the primary key of the singleton reset marker row.
const ResetMarkerID = 1

// ResetMarker holds the month in which monthly counters were last zeroed.
type ResetMarker struct {
	ID      int        `bun:",pk"`
	Month   time.Month `bun:",notnull"`
	ResetAt time.Time  `bun:",nullzero"`
}
