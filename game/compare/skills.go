package compare

import "github.com/chunxia/legion/aion"

// UnknownClass is displayed for a side without a class name.
const UnknownClass = "未知"

// SkillRow pairs one skill across both characters. A level of 0 means the
// side has not acquired the skill; Delta is nil unless both sides have it.
type SkillRow struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	CurrentLevel int    `json:"currentLevel"`
	CompareLevel int    `json:"compareLevel"`
	Delta        *Delta `json:"delta,omitempty"`
	Display      string `json:"display"`
}

// SkillComparison is either a skill list (Comparable) or the notice that the
// classes differ. Skills is always nil when Comparable is false.
type SkillComparison struct {
	Comparable   bool       `json:"comparable"`
	CurrentClass string     `json:"currentClass"`
	CompareClass string     `json:"compareClass"`
	Skills       []SkillRow `json:"skills,omitempty"`
}

// Notice returns the message shown for incomparable classes.
func (s SkillComparison) Notice() string {
	if s.Comparable {
		return ""
	}
	return "职业不同，无法对比技能（" + orUnknown(s.CurrentClass) + " vs " + orUnknown(s.CompareClass) + "）"
}

// CompareSkills diffs acquired skill levels. Both class names must be set
// and equal, otherwise no rows are produced at all.
func CompareSkills(currentClass, compareClass string, current, compare []aion.Skill) SkillComparison {
	out := SkillComparison{CurrentClass: currentClass, CompareClass: compareClass}
	if currentClass == "" || compareClass == "" || currentClass != compareClass {
		return out
	}
	out.Comparable = true

	index := make(map[int]int)
	for _, s := range current {
		if s.Acquired != 1 {
			continue
		}
		if i, ok := index[s.ID]; ok {
			out.Skills[i].CurrentLevel = s.SkillLevel
			continue
		}
		index[s.ID] = len(out.Skills)
		out.Skills = append(out.Skills, SkillRow{ID: s.ID, Name: s.Name, Icon: s.Icon, CurrentLevel: s.SkillLevel})
	}
	for _, s := range compare {
		if s.Acquired != 1 {
			continue
		}
		if i, ok := index[s.ID]; ok {
			out.Skills[i].CompareLevel = s.SkillLevel
			continue
		}
		index[s.ID] = len(out.Skills)
		out.Skills = append(out.Skills, SkillRow{ID: s.ID, Name: s.Name, Icon: s.Icon, CompareLevel: s.SkillLevel})
	}

	for i := range out.Skills {
		r := &out.Skills[i]
		r.Display = EqualMark
		if r.CurrentLevel > 0 && r.CompareLevel > 0 {
			d := DiffValues(float64(r.CurrentLevel), float64(r.CompareLevel), true)
			r.Delta = &d
			r.Display = FormatDelta(d.Delta, Number)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownClass
	}
	return s
}
