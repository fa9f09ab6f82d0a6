package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a fake wall clock for reproducible reports.
//
// Each call to Now advances the clock by Step, so durations measured
// between two calls are fixed regardless of how long the test really took.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	Step time.Duration
}

// NewDeterministicClock creates a clock that advances by step per reading.
//
// The first call to Now() returns Epoch.
func NewDeterministicClock(step time.Duration) *DeterministicClock {
	return &DeterministicClock{Step: step}
}

// Now returns Epoch plus Step for every previous reading.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.seq) * c.Step)
	c.seq++
	return t
}

// Reset rewinds the clock so the next Now() returns Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// FixedIDGenerator returns the same run ID every time.
//
// If id is empty, Generate() returns "test-run-default".
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for golden report comparison.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
