package power

// Rules names the stats the calculator recognises. Upstream text is served in
// both simplified and traditional Chinese, so every table carries both forms.
type Rules struct {
	// EquipmentAttack are item stat names adding attack power. Flat values go
	// to equipmentFlat, "%" values to equipmentPercent.
	EquipmentAttack []string `mapstructure:"equipment_attack"`
	// EquipmentAttackPercent are item stat names that are always percentages.
	EquipmentAttackPercent []string `mapstructure:"equipment_attack_percent"`
	// DaevanionFlat are merged board stat names counted as flat or PVE attack.
	DaevanionFlat []string `mapstructure:"daevanion_flat"`
	// Destruction and Strength match a character stat by type or name.
	Destruction []string `mapstructure:"destruction"`
	Strength    []string `mapstructure:"strength"`
	// SecondaryPercent are the statSecondList effect names of Destruction and
	// Strength that raise attack power.
	SecondaryPercent []string `mapstructure:"secondary_percent"`
}

// DefaultRules returns the tables used by the site.
func DefaultRules() Rules {
	return Rules{
		EquipmentAttack:        []string{"攻击力", "攻擊力"},
		EquipmentAttackPercent: []string{"攻击力增加", "攻擊力增加"},
		DaevanionFlat: []string{
			"攻击力", "攻擊力",
			"额外攻击力", "額外攻擊力",
			"追加攻击力", "追加攻擊力",
			"PVE攻击力", "PVE攻擊力",
		},
		Destruction:      []string{"Destruction", "破坏", "破壞"},
		Strength:         []string{"Power", "Strength", "威力"},
		SecondaryPercent: []string{"攻击力增加", "攻擊力增加"},
	}
}

// withDefaults fills empty tables from DefaultRules.
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if len(r.EquipmentAttack) == 0 {
		r.EquipmentAttack = d.EquipmentAttack
	}
	if len(r.EquipmentAttackPercent) == 0 {
		r.EquipmentAttackPercent = d.EquipmentAttackPercent
	}
	if len(r.DaevanionFlat) == 0 {
		r.DaevanionFlat = d.DaevanionFlat
	}
	if len(r.Destruction) == 0 {
		r.Destruction = d.Destruction
	}
	if len(r.Strength) == 0 {
		r.Strength = d.Strength
	}
	if len(r.SecondaryPercent) == 0 {
		r.SecondaryPercent = d.SecondaryPercent
	}
	return r
}

type nameSet map[string]struct{}

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}
