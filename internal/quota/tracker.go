// Package quota bounds premium-model usage per identity per day.
package quota

import (
	"sync"
	"time"
)

// Tier is the completion-model quality level chosen for a request.
type Tier string

const (
	TierPremium  Tier = "premium"
	TierStandard Tier = "standard"
)

// Decision is the per-request routing outcome. It is computed once per
// request and never stored.
type Decision struct {
	Tier      Tier
	Remaining int  // premium calls left today after this one
	Switched  bool // true when the daily limit forced the standard tier
}

type usageRecord struct {
	day          string
	premiumCount int
}

// Tracker counts premium-model calls per identity with a lazy daily reset.
// Counters live in process memory only and are lost on restart.
// Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	limit   int
	records map[string]*usageRecord
}

// NewTracker creates a Tracker with the given daily premium limit.
func NewTracker(dailyLimit int) *Tracker {
	return &Tracker{
		limit:   dailyLimit,
		records: make(map[string]*usageRecord),
	}
}

// Limit returns the configured daily premium limit.
func (t *Tracker) Limit() int { return t.limit }

func dayOf(now time.Time) string {
	return now.Format("2006-01-02")
}

// Select picks the model tier for one request from identity at time now.
// Below the limit it consumes one premium slot; at the limit it returns the
// standard tier without touching the counter, so the counter saturates at
// the limit and every later call that day gets the same switched signal.
func (t *Tracker) Select(identity string, now time.Time) Decision {
	day := dayOf(now)

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[identity]
	if !ok {
		rec = &usageRecord{day: day}
		t.records[identity] = rec
	}
	if rec.day != day {
		rec.day = day
		rec.premiumCount = 0
	}

	if rec.premiumCount < t.limit {
		rec.premiumCount++
		return Decision{
			Tier:      TierPremium,
			Remaining: t.limit - rec.premiumCount,
		}
	}
	return Decision{Tier: TierStandard, Switched: true}
}

// Used returns the premium calls consumed by identity today. Reads through
// the same lazy rollover as Select but creates no record.
func (t *Tracker) Used(identity string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[identity]
	if !ok || rec.day != dayOf(now) {
		return 0
	}
	return rec.premiumCount
}

// Tracked reports whether a usage record exists for identity.
func (t *Tracker) Tracked(identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[identity]
	return ok
}
