package model

import (
	"fmt"
	"time"
)

// Counter names one of the tracked statistics. The set is closed: values
// outside it never reach a store.
type Counter int

const (
	CounterXP Counter = iota + 1
	CounterMessages
	CounterCalls
)

var counterNames = map[Counter]string{
	CounterXP:       "xp",
	CounterMessages: "messages",
	CounterCalls:    "calls",
}

func (c Counter) String() string {
	if name, ok := counterNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Counter(%d)", int(c))
}

// Valid reports whether c is one of the tracked counters.
func (c Counter) Valid() bool {
	_, ok := counterNames[c]
	return ok
}

// ParseCounter maps a wire name onto a Counter.
func ParseCounter(name string) (Counter, bool) {
	for c, n := range counterNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Stats is the per-user counter snapshot.
type Stats struct {
	UserID      string    `json:"-"`
	XP          int64     `json:"xp"`
	Messages    int64     `json:"messages"`
	Calls       int64     `json:"calls"`
	LastUpdated time.Time `json:"-"`
}

// ZeroStats is the snapshot reported for a user with no stats row.
func ZeroStats(userID string) *Stats {
	return &Stats{UserID: userID}
}

// StatsDelta is the amount added to each counter by one atomic increment.
type StatsDelta struct {
	XP       int64
	Messages int64
	Calls    int64
}

// DeltaFor builds a delta that touches only counter c.
func DeltaFor(c Counter, amount int64) StatsDelta {
	var d StatsDelta
	switch c {
	case CounterXP:
		d.XP = amount
	case CounterMessages:
		d.Messages = amount
	case CounterCalls:
		d.Calls = amount
	}
	return d
}
