package world

import (
	"errors"
	"testing"

	"github.com/jwebster45206/page-engine/pkg/environment"
)

func forestWorld() Definition {
	return Definition{
		Start: "start",
		Locations: []Location{
			{ID: "start", Title: "Start", Transitions: []Transition{
				{Label: "go_north", Target: "forest"},
			}},
			{ID: "forest", Title: "Forest", Transitions: []Transition{
				{Label: "go_back", Target: "start"},
				{Label: "enter_cave", Target: "cave", Guard: &Guard{Kind: GuardEnvEquals, Field: "weather", Value: "stormy"}},
			}},
			{ID: "cave", Title: "Cave", Transitions: []Transition{
				{Label: "leave", Target: "forest"},
			}},
		},
	}
}

func TestLoad_Valid(t *testing.T) {
	g, err := Load(forestWorld())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if g.Start() != "start" {
		t.Errorf("Start = %q", g.Start())
	}
	if g.Len() != 3 {
		t.Errorf("Len = %d, want 3", g.Len())
	}
	if len(g.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", g.Warnings())
	}
}

func TestLoad_ClosureInvariant(t *testing.T) {
	g, err := Load(forestWorld())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, id := range g.IDs() {
		for _, tr := range g.TransitionsFrom(id) {
			if !g.Has(tr.Target) {
				t.Errorf("transition %q from %q targets unknown %q", tr.Label, id, tr.Target)
			}
		}
	}
}

func TestLoad_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		check func(t *testing.T, err error)
	}{
		{
			name: "dangling transition",
			def: Definition{Start: "a", Locations: []Location{
				{ID: "a", Transitions: []Transition{{Label: "east", Target: "nowhere"}}},
			}},
			check: func(t *testing.T, err error) {
				var de *DanglingTransitionError
				if !errors.As(err, &de) {
					t.Fatalf("expected DanglingTransitionError, got %v", err)
				}
				if de.From != "a" || de.Target != "nowhere" || de.Label != "east" {
					t.Errorf("unexpected error fields: %+v", de)
				}
			},
		},
		{
			name: "duplicate location",
			def: Definition{Start: "a", Locations: []Location{
				{ID: "a"}, {ID: "a"},
			}},
			check: func(t *testing.T, err error) {
				var de *DuplicateLocationError
				if !errors.As(err, &de) || de.ID != "a" {
					t.Fatalf("expected DuplicateLocationError for a, got %v", err)
				}
			},
		},
		{
			name: "missing start",
			def:  Definition{Start: "z", Locations: []Location{{ID: "a"}}},
			check: func(t *testing.T, err error) {
				var me *MissingStartError
				if !errors.As(err, &me) || me.Start != "z" {
					t.Fatalf("expected MissingStartError for z, got %v", err)
				}
			},
		},
		{
			name: "empty id",
			def:  Definition{Start: "a", Locations: []Location{{ID: "a"}, {}}},
			check: func(t *testing.T, err error) {
				var ee *EmptyIDError
				if !errors.As(err, &ee) || ee.Index != 1 {
					t.Fatalf("expected EmptyIDError at 1, got %v", err)
				}
			},
		},
		{
			name: "invalid guard",
			def: Definition{Start: "a", Locations: []Location{
				{ID: "a", Transitions: []Transition{{Label: "up", Target: "a", Guard: &Guard{Kind: GuardEnvEquals, Field: "mood", Value: "happy"}}}},
			}},
			check: func(t *testing.T, err error) {
				var ge *InvalidGuardError
				if !errors.As(err, &ge) {
					t.Fatalf("expected InvalidGuardError, got %v", err)
				}
			},
		},
		{
			name: "misspelled guard value",
			def: Definition{Start: "a", Locations: []Location{
				{ID: "a", Transitions: []Transition{{Label: "up", Target: "a", Guard: &Guard{Kind: GuardEnvEquals, Field: "weather", Value: "stromy"}}}},
			}},
			check: func(t *testing.T, err error) {
				var ge *InvalidGuardError
				if !errors.As(err, &ge) || ge.Label != "up" {
					t.Fatalf("expected InvalidGuardError for up, got %v", err)
				}
			},
		},
		{
			name: "duplicate label",
			def: Definition{Start: "a", Locations: []Location{
				{ID: "a", Transitions: []Transition{{Label: "up", Target: "a"}, {Label: "up", Target: "a"}}},
			}},
			check: func(t *testing.T, err error) {
				var ie *InvalidDefinitionError
				if !errors.As(err, &ie) {
					t.Fatalf("expected InvalidDefinitionError, got %v", err)
				}
			},
		},
		{
			name: "bad climate",
			def: Definition{Start: "a", Locations: []Location{
				{ID: "a", Climate: &environment.Climate{Weather: []environment.WeatherWeight{{Type: "hail", Weight: 1}}}},
			}},
			check: func(t *testing.T, err error) {
				var ie *InvalidDefinitionError
				if !errors.As(err, &ie) {
					t.Fatalf("expected InvalidDefinitionError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Load(tt.def)
			if err == nil {
				t.Fatal("expected error")
			}
			if g != nil {
				t.Error("no graph should be produced on error")
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %T", err)
			}
			tt.check(t, err)
		})
	}
}

func TestLoad_ReportsAllErrors(t *testing.T) {
	def := Definition{Start: "missing", Locations: []Location{
		{ID: "a", Transitions: []Transition{{Label: "x", Target: "b"}, {Label: "y", Target: "c"}}},
		{ID: "a"},
	}}
	_, err := Load(def)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if len(le.Errs) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(le.Errs), le.Errs)
	}
}

func TestLoad_Warnings(t *testing.T) {
	def := Definition{Start: "a", Locations: []Location{
		{ID: "a", Transitions: []Transition{
			{Label: "on", Target: "b"},
			{Label: "locked", Target: "b", Guard: &Guard{Kind: GuardFlagSet, Flag: "has_key"}},
		}},
		{ID: "b"},
		{ID: "island", Transitions: []Transition{{Label: "swim", Target: "a"}}},
	}}
	g, err := Load(def)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []Warning{
		{Kind: WarningUnsetFlag, LocationID: "a", Detail: `transition "locked" reads flag "has_key"`},
		{Kind: WarningDeadEnd, LocationID: "b"},
		{Kind: WarningUnreachable, LocationID: "island"},
	}
	got := g.Warnings()
	if len(got) != len(want) {
		t.Fatalf("warnings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("warning %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGraph_Resolve(t *testing.T) {
	g, err := Load(forestWorld())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	calm := GuardInput{Env: environment.Context{Weather: environment.WeatherClear}}
	stormy := GuardInput{Env: environment.Context{Weather: environment.WeatherStormy}}

	tr, err := g.Resolve("start", "go_north", calm)
	if err != nil || tr.Target != "forest" {
		t.Fatalf("Resolve(start, go_north) = %v, %v", tr, err)
	}

	_, err = g.Resolve("forest", "go_east", calm)
	var ie *InvalidTransitionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	_, err = g.Resolve("forest", "enter_cave", calm)
	var gr *GuardRejectedError
	if !errors.As(err, &gr) {
		t.Fatalf("expected GuardRejectedError, got %v", err)
	}
	if gr.Guard.String() != "weather = stormy" {
		t.Errorf("guard = %s", gr.Guard)
	}

	tr, err = g.Resolve("forest", "enter_cave", stormy)
	if err != nil || tr.Target != "cave" {
		t.Fatalf("Resolve(forest, enter_cave) with storm = %v, %v", tr, err)
	}

	_, err = g.Resolve("void", "go_north", calm)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGraph_ReturnsCopies(t *testing.T) {
	g, err := Load(forestWorld())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	trs := g.TransitionsFrom("forest")
	trs[1].Guard.Value = "clear"
	trs[0].Target = "cave"

	loc, err := g.Location("forest")
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.Transitions[0].Target != "start" || loc.Transitions[1].Guard.Value != "stormy" {
		t.Error("mutating a returned transition changed the graph")
	}
	if got := g.TransitionsFrom("void"); len(got) != 0 {
		t.Errorf("unknown id should have no transitions, got %v", got)
	}
}

func TestGraph_Climate(t *testing.T) {
	def := forestWorld()
	def.Locations[1].Climate = &environment.Climate{Weather: []environment.WeatherWeight{{Type: environment.WeatherStormy, Weight: 1}}}
	g, err := Load(def)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := g.Climate("start"); ok {
		t.Error("start has no climate")
	}
	c, ok := g.Climate("forest")
	if !ok || len(c.Weather) != 1 || c.Weather[0].Type != environment.WeatherStormy {
		t.Errorf("Climate(forest) = %+v, %v", c, ok)
	}
}
