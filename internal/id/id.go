// Package id issues identifiers for backtest runs.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	once    sync.Once
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
)

// NewRunID returns a time-sortable ULID string identifying one backtest run.
// Run IDs key the SQLite journal; trade records inside a run carry plain
// sequence numbers instead, so repeated runs over the same inputs produce
// byte-identical ledgers.
func NewRunID() string {
	once.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
