package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/page-engine/pkg/environment"
	"github.com/jwebster45206/page-engine/pkg/session"
	"github.com/jwebster45206/page-engine/pkg/world"
)

// ResetNotice is shown when a session pointed at a location that no longer exists.
const ResetNotice = "Your previous location no longer exists. You have been returned to the start."

// Environment supplies the context for a location at a moment.
// *environment.Cache satisfies it.
type Environment interface {
	Get(locationID string, now time.Time) (environment.Context, error)
}

// SnapshotStore persists sessions outside the process. LoadSession returns
// nil, nil for an unknown id.
type SnapshotStore interface {
	SaveSession(ctx context.Context, s session.Session) error
	LoadSession(ctx context.Context, id string) (*session.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

var _ Environment = (*environment.Cache)(nil)

// errUnchanged rolls back a session update that only read state.
var errUnchanged = errors.New("session unchanged")

// Engine serves view and act requests against one world.
type Engine struct {
	graph     *world.Graph
	env       Environment
	sessions  *session.Store
	snapshots SnapshotStore
	logger    *slog.Logger
}

// NewEngine wires an engine. snapshots may be nil.
func NewEngine(graph *world.Graph, env Environment, sessions *session.Store, snapshots SnapshotStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		graph:     graph,
		env:       env,
		sessions:  sessions,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Graph returns the world the engine navigates.
func (e *Engine) Graph() *world.Graph { return e.graph }

// View returns the session's location and environment without moving it.
// An unseen session is created at the start.
func (e *Engine) View(ctx context.Context, sessionID string, now time.Time) (Result, error) {
	fresh := e.prepare(ctx, sessionID)

	var res Result
	s, err := e.sessions.Update(sessionID, func(tx *session.Tx) error {
		res = Result{SessionID: sessionID}
		loc, err := e.current(tx, &res)
		if err != nil {
			return err
		}
		env, err := e.env.Get(loc.ID, now)
		if err != nil {
			return err
		}
		e.fill(&res, loc, env, tx.Flags())
		if !tx.Dirty() {
			return errUnchanged
		}
		return nil
	})
	return e.finish(ctx, res, s, err, fresh)
}

// Act attempts the transition labeled label. A rejected label leaves the
// session untouched and is reported in Result.Rejected, not as an error.
// Errors are transient environment failures; nothing is mutated on error.
func (e *Engine) Act(ctx context.Context, sessionID, label string, now time.Time) (Result, error) {
	fresh := e.prepare(ctx, sessionID)

	var res Result
	s, err := e.sessions.Update(sessionID, func(tx *session.Tx) error {
		res = Result{SessionID: sessionID}
		loc, err := e.current(tx, &res)
		if err != nil {
			return err
		}
		env, err := e.env.Get(loc.ID, now)
		if err != nil {
			return err
		}
		if tx.Dirty() {
			// The session was reset; the label belonged to the old location.
			e.fill(&res, loc, env, tx.Flags())
			return nil
		}

		flags := tx.Flags()
		tr, err := e.graph.Resolve(loc.ID, label, world.GuardInput{Env: env, Flags: flags})
		if err != nil {
			rej, ok := e.rejection(loc, label, err)
			if !ok {
				return err
			}
			e.fill(&res, loc, env, flags)
			res.Rejected = rej
			return errUnchanged
		}

		target, err := e.graph.Location(tr.Target)
		if err != nil {
			return err
		}
		targetEnv, err := e.env.Get(target.ID, now)
		if err != nil {
			return err
		}

		tx.Apply(target.ID)
		for name, v := range tr.SetFlags {
			tx.SetFlag(name, v)
		}
		e.fill(&res, target, targetEnv, tx.Flags())
		e.logger.Debug("Applied transition",
			"session_id", sessionID,
			"from", loc.ID,
			"label", label,
			"to", target.ID)
		return nil
	})
	return e.finish(ctx, res, s, err, fresh)
}

// Forget drops the session from memory and from snapshots.
func (e *Engine) Forget(ctx context.Context, sessionID string) error {
	e.sessions.Remove(sessionID)
	if e.snapshots == nil {
		return nil
	}
	if err := e.snapshots.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}

// prepare restores an unseen session from snapshots. It reports whether the
// session is new to both the store and the snapshots.
func (e *Engine) prepare(ctx context.Context, sessionID string) bool {
	if _, ok := e.sessions.Lookup(sessionID); ok {
		return false
	}
	if e.snapshots == nil || sessionID == "" {
		return true
	}
	snap, err := e.snapshots.LoadSession(ctx, sessionID)
	if err != nil {
		e.logger.Warn("Failed to load session snapshot", "session_id", sessionID, "error", err)
		return true
	}
	if snap == nil {
		return true
	}
	snap.ID = sessionID
	if e.sessions.Restore(*snap) {
		e.logger.Debug("Restored session from snapshot", "session_id", sessionID, "location", snap.Location)
	}
	return false
}

// current resolves the working session's location, resetting it to the start
// when the stored id is not in the graph.
func (e *Engine) current(tx *session.Tx, res *Result) (world.Location, error) {
	id := tx.Location()
	loc, err := e.graph.Location(id)
	if err == nil {
		return loc, nil
	}
	var nf *world.NotFoundError
	if !errors.As(err, &nf) {
		return world.Location{}, err
	}

	e.logger.Warn("Session points at unknown location, resetting",
		"session_id", res.SessionID,
		"location", id,
		"start", e.graph.Start())
	tx.Reset()
	res.Notice = ResetNotice
	loc, err = e.graph.Location(e.graph.Start())
	if err != nil {
		return world.Location{}, fmt.Errorf("start location: %w", err)
	}
	return loc, nil
}

func (e *Engine) rejection(loc world.Location, label string, err error) (*Rejection, bool) {
	var invalid *world.InvalidTransitionError
	if errors.As(err, &invalid) {
		return &Rejection{
			Reason:     RejectInvalidTransition,
			Label:      label,
			Message:    err.Error(),
			Suggestion: suggestLabel(label, loc.Transitions),
		}, true
	}
	var guard *world.GuardRejectedError
	if errors.As(err, &guard) {
		return &Rejection{
			Reason:  RejectGuard,
			Label:   label,
			Message: err.Error(),
		}, true
	}
	return nil, false
}

func (e *Engine) fill(res *Result, loc world.Location, env environment.Context, flags map[string]bool) {
	res.Location = loc
	res.Environment = env
	res.Choices = choicesFor(loc, world.GuardInput{Env: env, Flags: flags})
}

// finish maps the update outcome to a result and saves a snapshot outside
// the session lock.
func (e *Engine) finish(ctx context.Context, res Result, s session.Session, err error, fresh bool) (Result, error) {
	switch {
	case errors.Is(err, errUnchanged):
		if fresh {
			e.save(ctx, res.SessionID)
		}
		return res, nil
	case err != nil:
		return Result{}, err
	}
	e.saveSession(ctx, s)
	return res, nil
}

func (e *Engine) save(ctx context.Context, sessionID string) {
	if e.snapshots == nil {
		return
	}
	s, ok := e.sessions.Lookup(sessionID)
	if !ok {
		return
	}
	e.saveSession(ctx, s)
}

func (e *Engine) saveSession(ctx context.Context, s session.Session) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.SaveSession(ctx, s); err != nil {
		e.logger.Error("Failed to save session snapshot", "session_id", s.ID, "error", err)
	}
}
