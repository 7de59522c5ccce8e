package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/page-engine/pkg/environment"
	"gopkg.in/yaml.v3"
)

// GuardKind tags the variant held by a Guard.
type GuardKind string

const (
	GuardEnvEquals    GuardKind = "env_equals"     // Field == Value
	GuardEnvNotEquals GuardKind = "env_not_equals" // Field != Value
	GuardEventActive  GuardKind = "event_active"   // Value is an active event tag
	GuardFlagSet      GuardKind = "flag_set"       // session Flag is true
	GuardFlagUnset    GuardKind = "flag_unset"     // session Flag is false or missing
	GuardAll          GuardKind = "all"            // every nested guard holds
	GuardAny          GuardKind = "any"            // at least one nested guard holds
	GuardNot          GuardKind = "not"            // the single nested guard does not hold
)

// Guard is a condition on a transition. It is plain data so graphs stay
// shareable and serializable; Evaluate is the only interpreter.
//
// In JSON and YAML a guard is either an object or a compact string:
//
//	weather = stormy
//	season != winter
//	event:festival
//	flag:has_key
//	!flag:has_key
//	weather = stormy && flag:has_lamp
//	event:festival || time_of_day = night
type Guard struct {
	Kind   GuardKind `json:"kind" yaml:"kind"`
	Field  string    `json:"field,omitempty" yaml:"field,omitempty"`
	Value  string    `json:"value,omitempty" yaml:"value,omitempty"`
	Flag   string    `json:"flag,omitempty" yaml:"flag,omitempty"`
	Guards []Guard   `json:"guards,omitempty" yaml:"guards,omitempty"`
}

// GuardInput is everything a guard may look at.
type GuardInput struct {
	Env   environment.Context
	Flags map[string]bool
}

// Evaluate reports whether the guard holds for in.
func (g Guard) Evaluate(in GuardInput) bool {
	switch g.Kind {
	case GuardEnvEquals:
		v, ok := in.Env.Field(g.Field)
		return ok && v == g.Value
	case GuardEnvNotEquals:
		v, ok := in.Env.Field(g.Field)
		return ok && v != g.Value
	case GuardEventActive:
		return in.Env.HasEvent(g.Value)
	case GuardFlagSet:
		return in.Flags[g.Flag]
	case GuardFlagUnset:
		return !in.Flags[g.Flag]
	case GuardAll:
		for _, sub := range g.Guards {
			if !sub.Evaluate(in) {
				return false
			}
		}
		return true
	case GuardAny:
		for _, sub := range g.Guards {
			if sub.Evaluate(in) {
				return true
			}
		}
		return false
	case GuardNot:
		return len(g.Guards) == 1 && !g.Guards[0].Evaluate(in)
	default:
		return false
	}
}

// Validate checks that the guard is well formed.
func (g Guard) Validate() error {
	switch g.Kind {
	case GuardEnvEquals, GuardEnvNotEquals:
		if !environment.IsField(g.Field) {
			return fmt.Errorf("unknown environment field %q", g.Field)
		}
		if g.Value == "" {
			return fmt.Errorf("%s on %q needs a value", g.Kind, g.Field)
		}
		if !environment.IsFieldValue(g.Field, g.Value) {
			return fmt.Errorf("%q is never a value of %s", g.Value, g.Field)
		}
	case GuardEventActive:
		if g.Value == "" {
			return errors.New("event_active needs an event tag")
		}
	case GuardFlagSet, GuardFlagUnset:
		if g.Flag == "" {
			return fmt.Errorf("%s needs a flag name", g.Kind)
		}
	case GuardAll, GuardAny:
		if len(g.Guards) == 0 {
			return fmt.Errorf("%s needs at least one nested guard", g.Kind)
		}
	case GuardNot:
		if len(g.Guards) != 1 {
			return fmt.Errorf("not needs exactly one nested guard, got %d", len(g.Guards))
		}
	case "":
		return errors.New("guard has no kind")
	default:
		return fmt.Errorf("unknown guard kind %q", g.Kind)
	}
	for _, sub := range g.Guards {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the guard in the compact form.
func (g Guard) String() string {
	switch g.Kind {
	case GuardEnvEquals:
		return g.Field + " = " + g.Value
	case GuardEnvNotEquals:
		return g.Field + " != " + g.Value
	case GuardEventActive:
		return "event:" + g.Value
	case GuardFlagSet:
		return "flag:" + g.Flag
	case GuardFlagUnset:
		return "!flag:" + g.Flag
	case GuardAll, GuardAny:
		op := " && "
		if g.Kind == GuardAny {
			op = " || "
		}
		parts := make([]string, len(g.Guards))
		for i, sub := range g.Guards {
			s := sub.String()
			if sub.Kind == GuardAll || sub.Kind == GuardAny {
				s = "(" + s + ")"
			}
			parts[i] = s
		}
		return strings.Join(parts, op)
	case GuardNot:
		if len(g.Guards) == 1 {
			return "not (" + g.Guards[0].String() + ")"
		}
	}
	return string(g.Kind)
}

// ParseGuard parses the compact string form. "||" binds looser than "&&";
// parentheses are not supported.
func ParseGuard(s string) (Guard, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Guard{}, errors.New("empty guard expression")
	}

	if alts := strings.Split(s, "||"); len(alts) > 1 {
		g := Guard{Kind: GuardAny}
		for _, alt := range alts {
			sub, err := ParseGuard(alt)
			if err != nil {
				return Guard{}, err
			}
			g.Guards = append(g.Guards, sub)
		}
		return g, nil
	}
	if terms := strings.Split(s, "&&"); len(terms) > 1 {
		g := Guard{Kind: GuardAll}
		for _, term := range terms {
			sub, err := parseTerm(term)
			if err != nil {
				return Guard{}, err
			}
			g.Guards = append(g.Guards, sub)
		}
		return g, nil
	}
	return parseTerm(s)
}

func parseTerm(s string) (Guard, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Guard{}, errors.New("empty guard term")
	case strings.HasPrefix(s, "!flag:"):
		return Guard{Kind: GuardFlagUnset, Flag: strings.TrimSpace(strings.TrimPrefix(s, "!flag:"))}, nil
	case strings.HasPrefix(s, "flag:"):
		return Guard{Kind: GuardFlagSet, Flag: strings.TrimSpace(strings.TrimPrefix(s, "flag:"))}, nil
	case strings.HasPrefix(s, "!event:"):
		tag := strings.TrimSpace(strings.TrimPrefix(s, "!event:"))
		return Guard{Kind: GuardNot, Guards: []Guard{{Kind: GuardEventActive, Value: tag}}}, nil
	case strings.HasPrefix(s, "event:"):
		return Guard{Kind: GuardEventActive, Value: strings.TrimSpace(strings.TrimPrefix(s, "event:"))}, nil
	}

	if field, value, ok := strings.Cut(s, "!="); ok {
		return Guard{Kind: GuardEnvNotEquals, Field: strings.TrimSpace(field), Value: strings.TrimSpace(value)}, nil
	}
	if field, value, ok := strings.Cut(s, "=="); ok {
		return Guard{Kind: GuardEnvEquals, Field: strings.TrimSpace(field), Value: strings.TrimSpace(value)}, nil
	}
	if field, value, ok := strings.Cut(s, "="); ok {
		return Guard{Kind: GuardEnvEquals, Field: strings.TrimSpace(field), Value: strings.TrimSpace(value)}, nil
	}
	return Guard{}, fmt.Errorf("cannot parse guard term %q", s)
}

// UnmarshalJSON accepts either the compact string form or an object.
func (g *Guard) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		parsed, err := ParseGuard(str)
		if err != nil {
			return err
		}
		*g = parsed
		return nil
	}

	type alias Guard
	var a alias
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	*g = Guard(a)
	return nil
}

// guardKeys are the mapping keys a YAML guard may use. Node.Decode does not
// inherit the decoder's KnownFields setting, so they are checked by hand.
var guardKeys = []string{"kind", "field", "value", "flag", "guards"}

// UnmarshalYAML accepts either the compact string form or a mapping.
func (g *Guard) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseGuard(node.Value)
		if err != nil {
			return err
		}
		*g = parsed
		return nil
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i < len(node.Content); i += 2 {
			key := node.Content[i]
			if !slices.Contains(guardKeys, key.Value) {
				return fmt.Errorf("guard: line %d: unknown field %q", key.Line, key.Value)
			}
		}
	}

	type alias Guard
	var a alias
	if err := node.Decode(&a); err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	*g = Guard(a)
	return nil
}

func (g Guard) clone() Guard {
	out := g
	if g.Guards != nil {
		out.Guards = make([]Guard, len(g.Guards))
		for i, sub := range g.Guards {
			out.Guards[i] = sub.clone()
		}
	}
	return out
}

// flagsIn returns every flag name a guard reads, sorted.
func (g Guard) flagsIn() []string {
	set := map[string]struct{}{}
	var walk func(Guard)
	walk = func(g Guard) {
		if g.Flag != "" {
			set[g.Flag] = struct{}{}
		}
		for _, sub := range g.Guards {
			walk(sub)
		}
	}
	walk(g)
	return slices.Sorted(maps.Keys(set))
}
