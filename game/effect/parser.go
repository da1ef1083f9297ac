// Package effect parses free-text Daevanion effect descriptions and folds them
// into per-name running totals.
package effect

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tells whether a description matched the "name value" grammar.
type Kind int

const (
	// Parsed descriptions carry a name and a numeric delta.
	Parsed Kind = iota
	// Unparseable descriptions are counted by their full text.
	Unparseable
)

func (k Kind) String() string {
	if k == Parsed {
		return "parsed"
	}
	return "unparseable"
}

// Effect is one parsed effect description.
type Effect struct {
	Kind    Kind
	Name    string
	Value   float64
	Percent bool
}

// "攻击力 +100", "冷却时间减少 +5%", "技能名称 +1", "属性名 100".
// \p{Zs} keeps full-width spaces working as separators.
var descPattern = regexp.MustCompile(`^(.+?)[\s\p{Zs}]+\+?(-?\d+(?:\.\d+)?)%?$`)

// Parse converts one description into an Effect. It never fails: text without
// a trailing number becomes an Unparseable effect keyed by the whole text with
// a unit value.
func Parse(desc string) Effect {
	m := descPattern.FindStringSubmatch(desc)
	if m == nil {
		return Effect{Kind: Unparseable, Name: desc, Value: 1}
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Effect{Kind: Unparseable, Name: desc, Value: 1}
	}
	return Effect{
		Kind:    Parsed,
		Name:    strings.TrimSpace(m[1]),
		Value:   v,
		Percent: strings.Contains(desc, "%"),
	}
}
