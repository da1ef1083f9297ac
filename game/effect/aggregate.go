package effect

import (
	"fmt"
	"strconv"
	"strings"
)

// PercentFlagPolicy decides which occurrence's percentage flag a name keeps
// when it is seen more than once. Values are always summed.
type PercentFlagPolicy int

const (
	// LastWrite keeps the flag of the most recent occurrence.
	LastWrite PercentFlagPolicy = iota
	// FirstWrite keeps the flag of the first occurrence.
	FirstWrite
)

func (p PercentFlagPolicy) String() string {
	if p == FirstWrite {
		return "firstWrite"
	}
	return "lastWrite"
}

// ParsePolicy reads a policy name as written in configuration. Empty means
// LastWrite.
func ParsePolicy(s string) (PercentFlagPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lastwrite", "last":
		return LastWrite, nil
	case "firstwrite", "first":
		return FirstWrite, nil
	}
	return LastWrite, fmt.Errorf("effect: unknown flag policy %q", s)
}

// Entry is the accumulated state of one effect name.
type Entry struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent bool    `json:"isPercentage"`
}

// String renders the entry as "{name} {sign}{value}{%}".
func (e Entry) String() string {
	return Render(e.Name, e.Value, e.Percent)
}

// Accumulator folds effects by name, preserving first-seen order.
// It is not safe for concurrent use.
type Accumulator struct {
	policy  PercentFlagPolicy
	order   []string
	entries map[string]*Entry
}

// NewAccumulator returns an empty accumulator using the given flag policy.
func NewAccumulator(policy PercentFlagPolicy) *Accumulator {
	return &Accumulator{
		policy:  policy,
		entries: make(map[string]*Entry),
	}
}

// Add parses desc and folds it in.
func (a *Accumulator) Add(desc string) Effect {
	e := Parse(desc)
	a.AddEffect(e)
	return e
}

// AddEffect folds an already parsed effect. Unparseable effects always
// carry a false percentage flag.
func (a *Accumulator) AddEffect(e Effect) {
	percent := e.Percent && e.Kind == Parsed
	cur, ok := a.entries[e.Name]
	if !ok {
		a.entries[e.Name] = &Entry{Name: e.Name, Value: e.Value, Percent: percent}
		a.order = append(a.order, e.Name)
		return
	}
	cur.Value += e.Value
	if a.policy == LastWrite {
		cur.Percent = percent
	}
}

// Get returns the entry for name.
func (a *Accumulator) Get(name string) (Entry, bool) {
	e, ok := a.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of distinct names.
func (a *Accumulator) Len() int { return len(a.order) }

// Entries returns a copy of all entries in first-seen order.
func (a *Accumulator) Entries() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.entries[name])
	}
	return out
}

// Render returns the display strings of all entries in first-seen order.
func (a *Accumulator) Render() []string {
	out := make([]string, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.entries[name].String())
	}
	return out
}

// Aggregate folds descs in order into a fresh accumulator.
func Aggregate(descs []string, policy PercentFlagPolicy) *Accumulator {
	acc := NewAccumulator(policy)
	for _, d := range descs {
		acc.Add(d)
	}
	return acc
}

// Render formats a value the way the site displays merged effects: a leading
// "+" only for positive values, negatives keep their own "-".
func Render(name string, value float64, percent bool) string {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	if value > 0 {
		s = "+" + s
	}
	if percent {
		s += "%"
	}
	return name + " " + s
}
