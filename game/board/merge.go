package board

import (
	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/game/effect"
)

// Effects is the merged view of a set of boards. Stat and skill effects are
// accumulated separately.
type Effects struct {
	Stats  *effect.Accumulator
	Skills *effect.Accumulator
}

// Summary is the display form of merged board effects.
type Summary struct {
	StatEffects  []string `json:"statEffects"`
	SkillEffects []string `json:"skillEffects"`
	TotalStats   int      `json:"totalStats"`
	TotalSkills  int      `json:"totalSkills"`
}

// Merge folds the open effect lists of all non-nil boards, board by board in
// slice order and entry by entry in API order.
func Merge(boards []*aion.DaevanionBoard, policy effect.PercentFlagPolicy) Effects {
	out := Effects{
		Stats:  effect.NewAccumulator(policy),
		Skills: effect.NewAccumulator(policy),
	}
	for _, b := range boards {
		if b == nil {
			continue
		}
		for _, e := range b.OpenStatEffectList {
			out.Stats.Add(e.Desc)
		}
		for _, e := range b.OpenSkillEffectList {
			out.Skills.Add(e.Desc)
		}
	}
	return out
}

// Summary renders the merged effects.
func (e Effects) Summary() Summary {
	stats := e.Stats.Render()
	skills := e.Skills.Render()
	return Summary{
		StatEffects:  stats,
		SkillEffects: skills,
		TotalStats:   len(stats),
		TotalSkills:  len(skills),
	}
}
