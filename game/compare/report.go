package compare

import (
	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/game/power"
)

// ItemLevelStat is the stat type holding the equipment level.
const ItemLevelStat = "ItemLevel"

const baseStatCount = 6

// Side is one character's loaded data. Any field may be nil while loading.
type Side struct {
	Info      *aion.CharacterInfo      `json:"characterInfo"`
	Equipment *aion.CharacterEquipment `json:"equipmentData"`
	Power     *power.Breakdown         `json:"attackPower"`
}

// Row is one compared metric. Pending is set while the target's value is
// unknown; the delta is then computed against zero and Display is EqualMark.
type Row struct {
	Label   string   `json:"label"`
	Current *float64 `json:"current"`
	Compare *float64 `json:"compare"`
	Delta   Delta    `json:"delta"`
	Display string   `json:"display"`
	Pending bool     `json:"pending"`
}

// Report is the full side-by-side comparison.
type Report struct {
	Core      []Row           `json:"core"`
	BaseStats []Row           `json:"baseStats"`
	MainStats []Row           `json:"mainStats"`
	Skills    SkillComparison `json:"skills"`
}

// Build compares current against target.
func Build(current, target Side) Report {
	r := Report{
		Core: []Row{
			NewRow("攻击力", finalPower(current.Power), finalPower(target.Power), true, Number),
			NewRow("装备等级", statValue(current.Info, ItemLevelStat), statValue(target.Info, ItemLevelStat), true, Number),
		},
	}

	cur, tgt := statList(current.Info), statList(target.Info)
	r.BaseStats = pairStats(head(cur), head(tgt), target.Info == nil)
	r.MainStats = pairStats(middle(cur), middle(tgt), target.Info == nil)

	r.Skills = CompareSkills(className(current.Info), className(target.Info), skills(current.Equipment), skills(target.Equipment))
	return r
}

// NewRow diffs one metric.
func NewRow(label string, current, compare *float64, higherIsBetter bool, f Format) Row {
	row := Row{
		Label:   label,
		Current: current,
		Compare: compare,
		Delta:   Diff(current, compare, higherIsBetter),
		Pending: compare == nil,
	}
	if row.Pending {
		row.Display = EqualMark
	} else {
		row.Display = FormatDelta(row.Delta.Delta, f)
	}
	return row
}

// pairStats pairs stats by position; labels come from the current side.
func pairStats(cur, tgt []aion.Stat, targetMissing bool) []Row {
	rows := make([]Row, 0, len(cur))
	for i, s := range cur {
		var compare *float64
		if i < len(tgt) {
			v := tgt[i].Value
			compare = &v
		} else if !targetMissing {
			zero := 0.0
			compare = &zero
		}
		v := s.Value
		rows = append(rows, NewRow(s.Name, &v, compare, true, Number))
	}
	return rows
}

func head(stats []aion.Stat) []aion.Stat {
	if len(stats) > baseStatCount {
		return stats[:baseStatCount]
	}
	return stats
}

// middle drops the base stats and the trailing item level entry.
func middle(stats []aion.Stat) []aion.Stat {
	if len(stats) <= baseStatCount+1 {
		return nil
	}
	return stats[baseStatCount : len(stats)-1]
}

func statList(info *aion.CharacterInfo) []aion.Stat {
	if info == nil {
		return nil
	}
	return info.Stat.StatList
}

func statValue(info *aion.CharacterInfo, statType string) *float64 {
	if info == nil {
		return nil
	}
	v, _ := info.StatValue(statType)
	return &v
}

func finalPower(b *power.Breakdown) *float64 {
	if b == nil {
		return nil
	}
	v := float64(b.FinalPower)
	return &v
}

func className(info *aion.CharacterInfo) string {
	if info == nil {
		return ""
	}
	return info.Profile.ClassName
}

func skills(eq *aion.CharacterEquipment) []aion.Skill {
	if eq == nil {
		return nil
	}
	return eq.Skill.SkillList
}
