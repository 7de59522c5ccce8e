package world

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/page-engine/pkg/environment"
)

// WarningKind classifies content that loads but is probably a mistake.
type WarningKind string

const (
	WarningUnreachable WarningKind = "unreachable" // not reachable from start
	WarningDeadEnd     WarningKind = "dead_end"    // no outgoing transitions
	WarningUnsetFlag   WarningKind = "unset_flag"  // a guard reads a flag no transition sets
)

type Warning struct {
	Kind       WarningKind `json:"kind"`
	LocationID string      `json:"location_id"`
	Detail     string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	if w.Detail == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.LocationID)
	}
	return fmt.Sprintf("%s: %s (%s)", w.Kind, w.LocationID, w.Detail)
}

// Graph is an immutable world. It is safe for concurrent use.
type Graph struct {
	name      string
	start     string
	order     []string
	locations map[string]Location
	warnings  []Warning
}

var _ environment.ClimateSource = (*Graph)(nil)

// Load validates def and builds a graph. Every structural error is reported
// in a single *LoadError; no graph is returned when there is one.
func Load(def Definition) (*Graph, error) {
	g := &Graph{
		name:      def.Name,
		start:     def.Start,
		locations: make(map[string]Location, len(def.Locations)),
	}

	var errs []error
	for i, loc := range def.Locations {
		if loc.ID == "" {
			errs = append(errs, &EmptyIDError{Index: i})
			continue
		}
		if _, exists := g.locations[loc.ID]; exists {
			errs = append(errs, &DuplicateLocationError{ID: loc.ID})
			continue
		}
		g.locations[loc.ID] = loc.clone()
		g.order = append(g.order, loc.ID)
	}

	if _, ok := g.locations[def.Start]; !ok {
		errs = append(errs, &MissingStartError{Start: def.Start})
	}

	for _, id := range g.order {
		errs = append(errs, g.checkLocation(g.locations[id])...)
	}

	if len(errs) > 0 {
		return nil, &LoadError{Errs: errs}
	}

	g.warnings = g.collectWarnings()
	return g, nil
}

func (g *Graph) checkLocation(loc Location) []error {
	var errs []error
	if loc.Climate != nil {
		if err := loc.Climate.Validate(); err != nil {
			errs = append(errs, &InvalidDefinitionError{LocationID: loc.ID, Reason: "climate: " + err.Error()})
		}
	}

	labels := make(map[string]bool, len(loc.Transitions))
	for _, t := range loc.Transitions {
		if t.Label == "" {
			errs = append(errs, &InvalidDefinitionError{LocationID: loc.ID, Reason: "transition with empty label"})
			continue
		}
		if labels[t.Label] {
			errs = append(errs, &InvalidDefinitionError{LocationID: loc.ID, Reason: fmt.Sprintf("duplicate transition label %q", t.Label)})
		}
		labels[t.Label] = true

		if _, ok := g.locations[t.Target]; !ok {
			errs = append(errs, &DanglingTransitionError{From: loc.ID, Label: t.Label, Target: t.Target})
		}
		if t.Guard != nil {
			if err := t.Guard.Validate(); err != nil {
				errs = append(errs, &InvalidGuardError{From: loc.ID, Label: t.Label, Reason: err.Error()})
			}
		}
	}
	return errs
}

func (g *Graph) collectWarnings() []Warning {
	reached := map[string]bool{g.start: true}
	queue := []string{g.start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, t := range g.locations[id].Transitions {
			if !reached[t.Target] {
				reached[t.Target] = true
				queue = append(queue, t.Target)
			}
		}
	}

	setFlags := map[string]bool{}
	for _, id := range g.order {
		for _, t := range g.locations[id].Transitions {
			for flag := range t.SetFlags {
				setFlags[flag] = true
			}
		}
	}

	var warnings []Warning
	for _, id := range g.order {
		loc := g.locations[id]
		if !reached[id] {
			warnings = append(warnings, Warning{Kind: WarningUnreachable, LocationID: id})
		}
		if len(loc.Transitions) == 0 {
			warnings = append(warnings, Warning{Kind: WarningDeadEnd, LocationID: id})
		}
		for _, t := range loc.Transitions {
			if t.Guard == nil {
				continue
			}
			for _, flag := range t.Guard.flagsIn() {
				if !setFlags[flag] {
					warnings = append(warnings, Warning{
						Kind:       WarningUnsetFlag,
						LocationID: id,
						Detail:     fmt.Sprintf("transition %q reads flag %q", t.Label, flag),
					})
				}
			}
		}
	}
	return warnings
}

// Name returns the world's display name, possibly empty.
func (g *Graph) Name() string { return g.name }

// Start returns the id new sessions begin at.
func (g *Graph) Start() string { return g.start }

// IDs returns location ids in definition order.
func (g *Graph) IDs() []string { return slices.Clone(g.order) }

// Len returns the number of locations.
func (g *Graph) Len() int { return len(g.order) }

// Warnings returns the content warnings found at load time.
func (g *Graph) Warnings() []Warning { return slices.Clone(g.warnings) }

// Has reports whether id is a location.
func (g *Graph) Has(id string) bool {
	_, ok := g.locations[id]
	return ok
}

// Location returns a copy of the location with the given id.
func (g *Graph) Location(id string) (Location, error) {
	loc, ok := g.locations[id]
	if !ok {
		return Location{}, &NotFoundError{ID: id}
	}
	return loc.clone(), nil
}

// TransitionsFrom returns the ordered transitions of id; empty for a dead end
// or an unknown id.
func (g *Graph) TransitionsFrom(id string) []Transition {
	loc, ok := g.locations[id]
	if !ok {
		return []Transition{}
	}
	out := make([]Transition, len(loc.Transitions))
	for i, t := range loc.Transitions {
		out[i] = t.clone()
	}
	return out
}

// Resolve finds the transition labeled label leaving id and checks its guard
// against in. It never mutates anything.
func (g *Graph) Resolve(id, label string, in GuardInput) (Transition, error) {
	loc, ok := g.locations[id]
	if !ok {
		return Transition{}, &NotFoundError{ID: id}
	}
	for _, t := range loc.Transitions {
		if t.Label != label {
			continue
		}
		if !t.Allowed(in) {
			return Transition{}, &GuardRejectedError{From: id, Label: label, Guard: t.Guard.clone()}
		}
		return t.clone(), nil
	}
	return Transition{}, &InvalidTransitionError{From: id, Label: label}
}

// Climate implements environment.ClimateSource.
func (g *Graph) Climate(id string) (environment.Climate, bool) {
	loc, ok := g.locations[id]
	if !ok || loc.Climate == nil {
		return environment.Climate{}, false
	}
	return *loc.clone().Climate, true
}
