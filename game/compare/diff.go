// Package compare diffs two characters' numbers for side-by-side display.
package compare

// Outcome is the direction of a delta from the current character's view.
type Outcome int

const (
	Equal Outcome = iota
	Favorable
	Unfavorable
)

func (o Outcome) String() string {
	switch o {
	case Favorable:
		return "favorable"
	case Unfavorable:
		return "unfavorable"
	default:
		return "equal"
	}
}

// Delta is a signed difference. Favorable is nil when the values are equal.
type Delta struct {
	Delta     float64 `json:"delta"`
	Favorable *bool   `json:"favorable"`
}

// Outcome returns the tri-state direction of d.
func (d Delta) Outcome() Outcome {
	switch {
	case d.Favorable == nil:
		return Equal
	case *d.Favorable:
		return Favorable
	default:
		return Unfavorable
	}
}

// Diff returns current - compare. Missing values count as zero, so callers
// that need to tell "not loaded yet" from "zero" must track that themselves.
func Diff(current, compare *float64, higherIsBetter bool) Delta {
	d := Delta{Delta: deref(current) - deref(compare)}
	if d.Delta == 0 {
		return d
	}
	fav := (d.Delta > 0) == higherIsBetter
	d.Favorable = &fav
	return d
}

// DiffValues is Diff for values that are known to be present.
func DiffValues(current, compare float64, higherIsBetter bool) Delta {
	return Diff(&current, &compare, higherIsBetter)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
