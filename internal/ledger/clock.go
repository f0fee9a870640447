// Package ledger provides the sequence-number clock the engine times
// rounds against. A ledger sequence is a monotonic counter standing in for
// block height; the system clock derives it from wall time at a fixed
// close interval, and tests drive a manual clock directly.
package ledger

import (
	"sync"
	"time"
)

// DefaultCloseInterval matches the ~5s ledger close time of the upstream
// network the price feed settles on.
const DefaultCloseInterval = 5 * time.Second

// Clock supplies the current ledger sequence number and timestamp. The
// engine performs all window and freshness checks against these values,
// never against wall-clock scheduling.
type Clock interface {
	Sequence() uint32
	Timestamp() uint64 // unix seconds
}

// SystemClock derives the ledger sequence from elapsed wall time since a
// genesis instant.
type SystemClock struct {
	genesis  time.Time
	interval time.Duration
}

// NewSystemClock creates a clock ticking one sequence per interval from
// genesis. A zero interval selects DefaultCloseInterval.
func NewSystemClock(genesis time.Time, interval time.Duration) *SystemClock {
	if interval <= 0 {
		interval = DefaultCloseInterval
	}
	return &SystemClock{genesis: genesis, interval: interval}
}

func (c *SystemClock) Sequence() uint32 {
	elapsed := time.Since(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint32(elapsed / c.interval)
}

func (c *SystemClock) Timestamp() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	mu  sync.Mutex
	seq uint32
	ts  uint64
}

// NewManualClock starts at the given sequence and timestamp.
func NewManualClock(seq uint32, ts uint64) *ManualClock {
	return &ManualClock{seq: seq, ts: ts}
}

func (c *ManualClock) Sequence() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *ManualClock) Timestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}

// SetSequence moves the ledger to an absolute sequence number.
func (c *ManualClock) SetSequence(seq uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
}

// SetTimestamp moves the ledger clock to an absolute unix time.
func (c *ManualClock) SetTimestamp(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts = ts
}

// Advance moves the sequence forward by n ledgers.
func (c *ManualClock) Advance(n uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq += n
}
