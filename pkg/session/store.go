package session

import (
	"errors"
	"sync"
	"time"
)

// ErrEmptyID is returned for operations on an empty session id.
var ErrEmptyID = errors.New("session id is empty")

// Store maps session ids to sessions. Operations on one id are serialized by
// that session's own lock; different ids never contend beyond the index.
// Sessions never expire on their own; callers Remove them.
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot

	start        string
	historyLimit int
	now          func() time.Time
}

type slot struct {
	mu      sync.Mutex
	s       Session
	removed bool // set by Remove; holders must fetch a new slot
}

// NewStore returns a store whose new sessions begin at start.
func NewStore(start string, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		slots:        make(map[string]*slot),
		start:        start,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Start returns the location new sessions are initialized at.
func (st *Store) Start() string { return st.start }

// slotFor returns the slot for id, creating a session at start if id is unseen.
func (st *Store) slotFor(id string) *slot {
	st.mu.RLock()
	sl, ok := st.slots[id]
	st.mu.RUnlock()
	if ok {
		return sl
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sl, ok := st.slots[id]; ok {
		return sl
	}
	now := st.now()
	sl = &slot{s: Session{
		ID:           id,
		Location:     st.start,
		Flags:        map[string]bool{},
		History:      []string{st.start},
		CreatedAt:    now,
		LastActivity: now,
	}}
	st.slots[id] = sl
	return sl
}

// Current returns the session's location, initializing an unseen id at start.
func (st *Store) Current(id string) string {
	if id == "" {
		return st.start
	}
	sl := st.lockedSlot(id)
	defer sl.mu.Unlock()
	return sl.s.Location
}

// Get returns a copy of the session, initializing an unseen id at start.
func (st *Store) Get(id string) (Session, error) {
	if id == "" {
		return Session{}, ErrEmptyID
	}
	sl := st.lockedSlot(id)
	defer sl.mu.Unlock()
	return sl.s.clone(), nil
}

// Lookup returns a copy of the session without creating it.
func (st *Store) Lookup(id string) (Session, bool) {
	st.mu.RLock()
	sl, ok := st.slots[id]
	st.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.s.clone(), true
}

// Apply moves the session to location, appending it to the bounded history.
func (st *Store) Apply(id, location string) (Session, error) {
	return st.Update(id, func(tx *Tx) error {
		tx.Apply(location)
		return nil
	})
}

// Update runs fn with exclusive access to the session. fn works on a copy
// that is committed only when fn returns nil; on error the session is
// unchanged and the error is returned as is.
func (st *Store) Update(id string, fn func(*Tx) error) (Session, error) {
	if id == "" {
		return Session{}, ErrEmptyID
	}
	sl := st.lockedSlot(id)
	defer sl.mu.Unlock()

	tx := &Tx{s: sl.s.clone(), store: st}
	if err := fn(tx); err != nil {
		return Session{}, err
	}
	tx.s.LastActivity = st.now()
	tx.s.Version++
	sl.s = tx.s
	return sl.s.clone(), nil
}

// lockedSlot returns the live slot for id with its lock held. A slot removed
// while the caller waited for it is skipped so no write lands on a forgotten
// session.
func (st *Store) lockedSlot(id string) *slot {
	for {
		sl := st.slotFor(id)
		sl.mu.Lock()
		if !sl.removed {
			return sl
		}
		sl.mu.Unlock()
	}
}

// Restore seeds the store with a persisted session if its id is unseen.
// It reports whether the snapshot was used.
func (st *Store) Restore(s Session) bool {
	if s.ID == "" {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.slots[s.ID]; ok {
		return false
	}
	s = s.clone()
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	if over := len(s.History) - st.historyLimit; over > 0 {
		s.History = s.History[over:]
	}
	st.slots[s.ID] = &slot{s: s}
	return true
}

// Remove forgets the session. It waits for an Update in progress on it to
// finish, and reports whether the session existed.
func (st *Store) Remove(id string) bool {
	st.mu.Lock()
	sl, ok := st.slots[id]
	delete(st.slots, id)
	st.mu.Unlock()
	if !ok {
		return false
	}

	sl.mu.Lock()
	sl.removed = true
	sl.mu.Unlock()
	return true
}

// Len returns the number of known sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.slots)
}

// Tx is a working copy of one session inside Update.
type Tx struct {
	s     Session
	store *Store
	dirty bool
}

// Session returns a copy of the working session.
func (tx *Tx) Session() Session { return tx.s.clone() }

// Location returns the working location.
func (tx *Tx) Location() string { return tx.s.Location }

// Flags returns a copy of the working flags.
func (tx *Tx) Flags() map[string]bool { return tx.s.clone().Flags }

// Apply moves the working session to location.
func (tx *Tx) Apply(location string) {
	tx.s.Location = location
	tx.s.History = appendHistory(tx.s.History, location, tx.store.historyLimit)
	tx.dirty = true
}

// SetFlag sets or clears a flag.
func (tx *Tx) SetFlag(name string, value bool) {
	if tx.s.Flags == nil {
		tx.s.Flags = map[string]bool{}
	}
	tx.s.Flags[name] = value
	tx.dirty = true
}

// Reset puts the working session back at the start location and clears its
// history. Flags are kept.
func (tx *Tx) Reset() {
	tx.s.Location = tx.store.start
	tx.s.History = []string{tx.store.start}
	tx.dirty = true
}

// Dirty reports whether the working copy was changed.
func (tx *Tx) Dirty() bool { return tx.dirty }
