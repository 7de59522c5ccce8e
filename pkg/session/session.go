package session

import (
	"maps"
	"slices"
	"time"
)

// DefaultHistoryLimit caps History when the store is built with a
// non-positive limit.
const DefaultHistoryLimit = 50

// Session is one player's server-held position in the world.
type Session struct {
	ID           string          `json:"id"`
	Location     string          `json:"location"`
	Flags        map[string]bool `json:"flags,omitempty"`
	History      []string        `json:"history,omitempty"` // visited location ids, oldest first
	CreatedAt    time.Time       `json:"created_at"`
	LastActivity time.Time       `json:"last_activity"`
	Version      uint64          `json:"version"` // bumped on every commit
}

// Flag reports whether the named flag is set.
func (s Session) Flag(name string) bool {
	return s.Flags[name]
}

func (s Session) clone() Session {
	out := s
	out.Flags = maps.Clone(s.Flags)
	out.History = slices.Clone(s.History)
	return out
}

// appendHistory adds id and drops the oldest entries beyond limit.
func appendHistory(history []string, id string, limit int) []string {
	history = append(history, id)
	if over := len(history) - limit; over > 0 {
		history = slices.Delete(history, 0, over)
	}
	return history
}
