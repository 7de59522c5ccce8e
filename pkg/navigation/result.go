package navigation

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/jwebster45206/page-engine/pkg/environment"
	"github.com/jwebster45206/page-engine/pkg/world"
)

// RejectReason says why an action was not applied.
type RejectReason string

const (
	RejectInvalidTransition RejectReason = "invalid_transition"
	RejectGuard             RejectReason = "guard_rejected"
)

// maxSuggestionDistance bounds "did you mean" edits.
const maxSuggestionDistance = 2

// Result is what View and Act hand to the renderer.
type Result struct {
	SessionID   string              `json:"session_id"`
	Location    world.Location      `json:"location"`
	Environment environment.Context `json:"environment"`
	Choices     []Choice            `json:"choices"`
	Rejected    *Rejection          `json:"rejected,omitempty"`
	Notice      string              `json:"notice,omitempty"`
}

// Choice is one transition out of the current location.
type Choice struct {
	Label     string `json:"label"`
	Target    string `json:"target"`
	Available bool   `json:"available"`
	Requires  string `json:"requires,omitempty"` // compact guard when unavailable
}

// Rejection explains a submitted label that did not move the session.
type Rejection struct {
	Reason     RejectReason `json:"reason"`
	Label      string       `json:"label"`
	Message    string       `json:"message"`
	Suggestion string       `json:"suggestion,omitempty"`
}

func choicesFor(loc world.Location, in world.GuardInput) []Choice {
	choices := make([]Choice, 0, len(loc.Transitions))
	for _, t := range loc.Transitions {
		c := Choice{Label: t.Label, Target: t.Target, Available: t.Allowed(in)}
		if !c.Available {
			c.Requires = t.Guard.String()
		}
		choices = append(choices, c)
	}
	return choices
}

// suggestLabel returns the closest label to label, ignoring case, or "" when
// nothing is within maxSuggestionDistance.
func suggestLabel(label string, transitions []world.Transition) string {
	best, bestDist := "", maxSuggestionDistance+1
	want := strings.ToLower(label)
	for _, t := range transitions {
		d := levenshtein.ComputeDistance(want, strings.ToLower(t.Label))
		if d < bestDist {
			best, bestDist = t.Label, d
		}
	}
	return best
}
