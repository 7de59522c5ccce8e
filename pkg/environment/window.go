package environment

import (
	"fmt"
	"time"
)

// Window is one fixed-length, epoch-aligned time bucket.
type Window struct {
	ID    int64     `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowFor returns the window of the given length that contains now.
// The window is half open: Start <= now < End.
func WindowFor(now time.Time, length time.Duration) Window {
	if length <= 0 {
		panic(fmt.Sprintf("environment: non-positive window length %s", length))
	}
	n := now.UnixNano()
	size := int64(length)
	id := n / size
	if n%size < 0 {
		id--
	}
	start := time.Unix(0, id*size).UTC()
	return Window{
		ID:    id,
		Start: start,
		End:   start.Add(length),
	}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
