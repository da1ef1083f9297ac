// Package power derives an approximate attack power from equipment, character
// stats and Daevanion boards.
package power

import (
	"math"
	"strings"

	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/effect"
)

// Disclaimer accompanies every result. Pets, costumes, wings and passive
// skills outside the boards are not counted.
const Disclaimer = "未包含:宠物加成、服装、翅膀、被动技能,最终结果有误差,仅供参考"

// Breakdown is the layered attack power result. Flat components are summed,
// percentage buckets are summed, and the single multiplication happens last.
type Breakdown struct {
	EquipmentFlat    float64 `json:"equipmentFlat"`
	DaevanionFlat    float64 `json:"daevanionFlat"`
	TotalFlat        float64 `json:"totalFlat"`
	EquipmentPercent float64 `json:"equipmentPercent"`
	Destruction      float64 `json:"destruction"`
	Strength         float64 `json:"strength"`
	TotalPercent     float64 `json:"totalPercent"`
	FinalPower       int64   `json:"finalPower"`
}

// Compose builds a Breakdown from its five independent components.
func Compose(equipmentFlat, daevanionFlat, equipmentPercent, destruction, strength float64) Breakdown {
	b := Breakdown{
		EquipmentFlat:    equipmentFlat,
		DaevanionFlat:    daevanionFlat,
		EquipmentPercent: equipmentPercent,
		Destruction:      destruction,
		Strength:         strength,
	}
	b.TotalFlat = b.EquipmentFlat + b.DaevanionFlat
	b.TotalPercent = b.EquipmentPercent + b.Destruction + b.Strength
	b.FinalPower = round(b.TotalFlat * (1 + b.TotalPercent/100))
	return b
}

// round is half-up towards positive infinity.
func round(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// Calculator applies a fixed set of Rules. It keeps no state between calls.
type Calculator struct {
	policy           effect.PercentFlagPolicy
	equipAttack      nameSet
	equipPercent     nameSet
	daevanionFlat    nameSet
	destruction      nameSet
	strength         nameSet
	secondaryPercent nameSet
}

// NewCalculator creates a Calculator. Empty tables in rules take their
// DefaultRules value.
func NewCalculator(rules Rules, policy effect.PercentFlagPolicy) *Calculator {
	rules = rules.withDefaults()
	return &Calculator{
		policy:           policy,
		equipAttack:      newNameSet(rules.EquipmentAttack),
		equipPercent:     newNameSet(rules.EquipmentAttackPercent),
		daevanionFlat:    newNameSet(rules.DaevanionFlat),
		destruction:      newNameSet(rules.Destruction),
		strength:         newNameSet(rules.Strength),
		secondaryPercent: newNameSet(rules.SecondaryPercent),
	}
}

// Policy returns the flag policy used when merging board effects.
func (c *Calculator) Policy() effect.PercentFlagPolicy { return c.policy }

// Calculate derives the breakdown. Nil boards, nil slots and a nil info all
// contribute zero.
func (c *Calculator) Calculate(details []aion.EquipmentDetail, info *aion.CharacterInfo, boards []*aion.DaevanionBoard) Breakdown {
	flat, pct := c.equipment(details)
	return Compose(flat, c.daevanion(boards), pct, c.statPercent(info, c.destruction), c.statPercent(info, c.strength))
}

func (c *Calculator) equipment(details []aion.EquipmentDetail) (flat, pct float64) {
	for _, d := range details {
		for _, list := range [][]aion.ItemStat{d.MainStats, d.SubStats, d.MagicStoneStat} {
			for _, s := range list {
				name := strings.TrimSpace(s.Name)
				switch {
				case c.equipPercent.has(name):
					pct += s.Value.Float() + s.Extra.Float()
				case c.equipAttack.has(name) && s.Value.Percent():
					pct += s.Value.Float() + s.Extra.Float()
				case c.equipAttack.has(name):
					flat += s.Value.Float() + s.Extra.Float()
				}
			}
		}
	}
	return flat, pct
}

// daevanion sums merged board entries that are flat and named in the table.
// A name merged into a percent entry counts for nothing, even if some of its
// lines were flat.
func (c *Calculator) daevanion(boards []*aion.DaevanionBoard) float64 {
	if len(boards) == 0 {
		return 0
	}
	var sum float64
	for _, e := range board.Merge(boards, c.policy).Stats.Entries() {
		if !e.Percent && c.daevanionFlat.has(e.Name) {
			sum += e.Value
		}
	}
	return sum
}

// statPercent sums the attack percentage lines of the first stat matching
// names by type or display name.
func (c *Calculator) statPercent(info *aion.CharacterInfo, names nameSet) float64 {
	if info == nil {
		return 0
	}
	for _, s := range info.Stat.StatList {
		if !names.has(s.Type) && !names.has(s.Name) {
			continue
		}
		var sum float64
		for _, line := range s.StatSecondList {
			e := effect.Parse(line)
			if e.Kind == effect.Parsed && e.Percent && c.secondaryPercent.has(e.Name) {
				sum += e.Value
			}
		}
		return sum
	}
	return 0
}
