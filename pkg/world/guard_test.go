package world

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jwebster45206/page-engine/pkg/environment"
	"gopkg.in/yaml.v3"
)

func TestParseGuard(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		kind    GuardKind
		wantErr bool
	}{
		{name: "equals", input: "weather = stormy", want: "weather = stormy", kind: GuardEnvEquals},
		{name: "double equals", input: "season==winter", want: "season = winter", kind: GuardEnvEquals},
		{name: "not equals", input: "time_of_day != night", want: "time_of_day != night", kind: GuardEnvNotEquals},
		{name: "event", input: "event:festival", want: "event:festival", kind: GuardEventActive},
		{name: "negated event", input: "!event:festival", want: "not (event:festival)", kind: GuardNot},
		{name: "flag", input: "flag:has_key", want: "flag:has_key", kind: GuardFlagSet},
		{name: "unset flag", input: "!flag:has_key", want: "!flag:has_key", kind: GuardFlagUnset},
		{name: "and", input: "weather = stormy && flag:has_lamp", want: "weather = stormy && flag:has_lamp", kind: GuardAll},
		{name: "or of and", input: "event:festival || weather = clear && time_of_day = day", want: "event:festival || (weather = clear && time_of_day = day)", kind: GuardAny},
		{name: "empty", input: "   ", wantErr: true},
		{name: "garbage", input: "sunny", wantErr: true},
		{name: "empty term", input: "flag:a && ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseGuard(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", g)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGuard failed: %v", err)
			}
			if g.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", g.Kind, tt.kind)
			}
			if g.String() != tt.want {
				t.Errorf("String() = %q, want %q", g.String(), tt.want)
			}
		})
	}
}

func TestGuard_Evaluate(t *testing.T) {
	in := GuardInput{
		Env: environment.Context{
			Season:       environment.SeasonSummer,
			TimeOfDay:    environment.TimeNight,
			Weather:      environment.WeatherStormy,
			TemperatureC: 18,
			Events:       []string{"festival"},
		},
		Flags: map[string]bool{"has_lamp": true, "met_guard": false},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"weather = stormy", true},
		{"weather = clear", false},
		{"weather != clear", true},
		{"temperature_c = 18", true},
		{"season = summer && time_of_day = night", true},
		{"season = winter && time_of_day = night", false},
		{"season = winter || event:festival", true},
		{"event:market", false},
		{"!event:market", true},
		{"flag:has_lamp", true},
		{"flag:met_guard", false},
		{"flag:never_set", false},
		{"!flag:met_guard", true},
		{"!flag:has_lamp", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			g, err := ParseGuard(tt.expr)
			if err != nil {
				t.Fatalf("ParseGuard failed: %v", err)
			}
			if got := g.Evaluate(in); got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_EvaluateMalformed(t *testing.T) {
	in := GuardInput{Env: environment.Context{Weather: environment.WeatherClear}}
	bad := []Guard{
		{Kind: "unknown"},
		{Kind: GuardNot},
		{Kind: GuardEnvEquals, Field: "mood", Value: "clear"},
	}
	for _, g := range bad {
		if g.Evaluate(in) {
			t.Errorf("malformed guard %+v evaluated true", g)
		}
	}
}

func TestGuard_Validate(t *testing.T) {
	tests := []struct {
		name    string
		guard   Guard
		wantErr bool
	}{
		{name: "valid env", guard: Guard{Kind: GuardEnvEquals, Field: "weather", Value: "rainy"}},
		{name: "unknown field", guard: Guard{Kind: GuardEnvEquals, Field: "mood", Value: "x"}, wantErr: true},
		{name: "misspelled weather", guard: Guard{Kind: GuardEnvEquals, Field: "weather", Value: "stromy"}, wantErr: true},
		{name: "unknown season", guard: Guard{Kind: GuardEnvNotEquals, Field: "season", Value: "monsoon"}, wantErr: true},
		{name: "valid time of day", guard: Guard{Kind: GuardEnvNotEquals, Field: "time_of_day", Value: "dusk"}},
		{name: "unknown time of day", guard: Guard{Kind: GuardEnvEquals, Field: "time_of_day", Value: "noon"}, wantErr: true},
		{name: "numeric temperature", guard: Guard{Kind: GuardEnvEquals, Field: "temperature_c", Value: "-4"}},
		{name: "non-numeric temperature", guard: Guard{Kind: GuardEnvEquals, Field: "temperature_c", Value: "warm"}, wantErr: true},
		{name: "missing value", guard: Guard{Kind: GuardEnvNotEquals, Field: "season"}, wantErr: true},
		{name: "event without tag", guard: Guard{Kind: GuardEventActive}, wantErr: true},
		{name: "flag without name", guard: Guard{Kind: GuardFlagSet}, wantErr: true},
		{name: "empty all", guard: Guard{Kind: GuardAll}, wantErr: true},
		{name: "not with two", guard: Guard{Kind: GuardNot, Guards: []Guard{{Kind: GuardFlagSet, Flag: "a"}, {Kind: GuardFlagSet, Flag: "b"}}}, wantErr: true},
		{name: "nested invalid", guard: Guard{Kind: GuardAny, Guards: []Guard{{Kind: GuardFlagSet, Flag: "a"}, {Kind: GuardEventActive}}}, wantErr: true},
		{name: "no kind", guard: Guard{}, wantErr: true},
		{name: "unknown kind", guard: Guard{Kind: "xor"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guard.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuard_UnmarshalJSON(t *testing.T) {
	var tr Transition
	data := `{"label": "enter_cave", "target": "cave", "guard": "weather = stormy && !flag:cave_sealed"}`
	if err := json.Unmarshal([]byte(data), &tr); err != nil {
		t.Fatalf("unmarshal string guard: %v", err)
	}
	if tr.Guard == nil || tr.Guard.Kind != GuardAll || len(tr.Guard.Guards) != 2 {
		t.Fatalf("unexpected guard %+v", tr.Guard)
	}

	data = `{"label": "enter_cave", "target": "cave", "guard": {"kind": "not", "guards": [{"kind": "env_equals", "field": "season", "value": "winter"}]}}`
	tr = Transition{}
	if err := json.Unmarshal([]byte(data), &tr); err != nil {
		t.Fatalf("unmarshal object guard: %v", err)
	}
	if tr.Guard.String() != "not (season = winter)" {
		t.Errorf("guard = %s", tr.Guard)
	}

	data = `{"label": "x", "target": "y", "guard": {"kind": "flag_set", "flags": "typo"}}`
	if err := json.Unmarshal([]byte(data), &tr); err == nil {
		t.Error("expected unknown field error")
	}

	data = `{"label": "x", "target": "y", "guard": "sunny"}`
	if err := json.Unmarshal([]byte(data), &tr); err == nil {
		t.Error("expected parse error")
	}
}

func TestGuard_UnmarshalYAML(t *testing.T) {
	data := `
- label: enter_cave
  target: cave
  guard: "event:eclipse || weather = stormy"
- label: climb
  target: ridge
  guard:
    kind: flag_set
    flag: has_rope
`
	var trs []Transition
	if err := yaml.Unmarshal([]byte(data), &trs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(trs))
	}
	if trs[0].Guard.Kind != GuardAny {
		t.Errorf("first guard kind = %s", trs[0].Guard.Kind)
	}
	if trs[1].Guard.String() != "flag:has_rope" {
		t.Errorf("second guard = %s", trs[1].Guard)
	}
}

func TestGuard_UnmarshalYAMLUnknownField(t *testing.T) {
	tests := map[string]string{
		"top level": "kind: flag_set\nflag: k\nbogus: 1\n",
		"nested":    "kind: any\nguards:\n  - kind: flag_set\n    flag: k\n    falg: j\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var g Guard
			err := yaml.Unmarshal([]byte(data), &g)
			if err == nil || !strings.Contains(err.Error(), "unknown field") {
				t.Errorf("expected unknown field error, got %v", err)
			}
		})
	}

	def := "start: a\nlocations:\n  - id: a\n    transitions:\n      - label: up\n        target: a\n        guard: {kind: flag_set, flag: k, bogus: 1}\n"
	if _, err := DecodeYAML(strings.NewReader(def)); err == nil {
		t.Error("DecodeYAML accepted a guard with an unknown field")
	}
}

func TestGuard_FlagsIn(t *testing.T) {
	g, err := ParseGuard("flag:b && !flag:a || flag:b")
	if err != nil {
		t.Fatalf("ParseGuard failed: %v", err)
	}
	got := g.flagsIn()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("flagsIn = %v", got)
	}
}
