package world

import (
	"maps"
	"slices"

	"github.com/jwebster45206/page-engine/pkg/environment"
)

// Definition is the loadable description of a world.
type Definition struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Start     string     `json:"start" yaml:"start"`
	Locations []Location `json:"locations" yaml:"locations"`
}

// Location is a page the player can occupy.
type Location struct {
	ID          string               `json:"id" yaml:"id"`
	Title       string               `json:"title" yaml:"title"`
	Body        string               `json:"body,omitempty" yaml:"body,omitempty"` // template reference for the renderer
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Transitions []Transition         `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Climate     *environment.Climate `json:"climate,omitempty" yaml:"climate,omitempty"`
	Metadata    map[string]string    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Transition is a labeled, optionally guarded exit.
type Transition struct {
	Label    string          `json:"label" yaml:"label"` // e.g. "North", "enter the cave"
	Target   string          `json:"target" yaml:"target"`
	Guard    *Guard          `json:"guard,omitempty" yaml:"guard,omitempty"`
	SetFlags map[string]bool `json:"set_flags,omitempty" yaml:"set_flags,omitempty"` // written to the session when taken
}

// Allowed reports whether the transition may be taken for in.
func (t Transition) Allowed(in GuardInput) bool {
	return t.Guard == nil || t.Guard.Evaluate(in)
}

func (t Transition) clone() Transition {
	out := t
	if t.Guard != nil {
		g := t.Guard.clone()
		out.Guard = &g
	}
	out.SetFlags = maps.Clone(t.SetFlags)
	return out
}

func (l Location) clone() Location {
	out := l
	out.Transitions = make([]Transition, len(l.Transitions))
	for i, t := range l.Transitions {
		out.Transitions[i] = t.clone()
	}
	if l.Climate != nil {
		c := *l.Climate
		c.Weather = slices.Clone(l.Climate.Weather)
		c.Events = slices.Clone(l.Climate.Events)
		for i := range c.Events {
			c.Events[i].Seasons = slices.Clone(c.Events[i].Seasons)
		}
		out.Climate = &c
	}
	out.Metadata = maps.Clone(l.Metadata)
	return out
}
