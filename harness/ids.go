package harness

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock hands out strictly increasing ledger sequence numbers.
type Clock interface {
	Next() int64
}

// LogicalClock is the default Clock. Ordering in the ledger comes from it,
// never from wall time.
type LogicalClock struct {
	seq atomic.Int64
}

// NewLogicalClock creates a clock whose first Next() is 1.
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// NewLogicalClockAt creates a clock that resumes after start, so a reopened
// ledger keeps increasing.
func NewLogicalClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}

// RunIDGenerator names suite runs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable run IDs.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. Panics if the random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
