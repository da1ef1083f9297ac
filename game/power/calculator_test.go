package power

import (
	"testing"

	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/game/effect"
	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	b := Compose(1000, 200, 10, 5, 3)
	assert.Equal(t, 1200.0, b.TotalFlat)
	assert.Equal(t, 18.0, b.TotalPercent)
	assert.Equal(t, int64(1416), b.FinalPower)
}

func TestCompose_SumThenMultiply(t *testing.T) {
	// Compounding per bucket would give 1000*1.1*1.1 = 1210.
	b := Compose(1000, 0, 10, 10, 0)
	assert.Equal(t, int64(1200), b.FinalPower)
}

func TestCompose_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(13), Compose(10, 0, 25, 0, 0).FinalPower)
	assert.Equal(t, int64(100), Compose(100, 0, 0.4, 0, 0).FinalPower)
	assert.Equal(t, int64(0), Compose(0, 0, 50, 0, 0).FinalPower)
}

func testDetails() []aion.EquipmentDetail {
	return []aion.EquipmentDetail{
		{
			Name: "长剑",
			MainStats: []aion.ItemStat{
				{Name: "攻击力", Value: "600", Extra: "100"},
				{Name: "命中", Value: "300"},
			},
			SubStats: []aion.ItemStat{
				{Name: "攻击力增加", Value: "4%"},
			},
			MagicStoneStat: []aion.ItemStat{
				{Name: "攻擊力", Value: "50"},
			},
		},
		{
			Name: "项链",
			MainStats: []aion.ItemStat{
				{Name: "攻击力", Value: "250"},
				{Name: "攻击力", Value: "6%"},
			},
		},
	}
}

func testInfo() *aion.CharacterInfo {
	return &aion.CharacterInfo{
		Stat: aion.StatBlock{StatList: []aion.Stat{
			{Type: "Destruction", Name: "破坏", Value: 120, StatSecondList: []string{"攻击力增加 +5%", "暴击 +30"}},
			{Type: "Power", Name: "威力", Value: 90, StatSecondList: []string{"攻擊力增加 +3%"}},
			{Type: "Accuracy", Name: "精准", Value: 80, StatSecondList: []string{"攻击力增加 +99%"}},
		}},
	}
}

func testBoards() []*aion.DaevanionBoard {
	return []*aion.DaevanionBoard{
		{OpenStatEffectList: []aion.EffectDesc{{Desc: "攻击力 +100"}, {Desc: "生命力 +500"}}},
		nil,
		{OpenStatEffectList: []aion.EffectDesc{{Desc: "PVE攻击力 +60"}, {Desc: "额外攻击力 +40"}, {Desc: "暴击伤害 +3%"}}},
		{OpenSkillEffectList: []aion.EffectDesc{{Desc: "攻击力 +1000"}}},
	}
}

func TestCalculate(t *testing.T) {
	c := NewCalculator(Rules{}, effect.LastWrite)
	b := c.Calculate(testDetails(), testInfo(), testBoards())

	assert.Equal(t, 1000.0, b.EquipmentFlat)
	assert.Equal(t, 10.0, b.EquipmentPercent)
	assert.Equal(t, 200.0, b.DaevanionFlat, "skill effects are not counted")
	assert.Equal(t, 5.0, b.Destruction)
	assert.Equal(t, 3.0, b.Strength)
	assert.Equal(t, 1200.0, b.TotalFlat)
	assert.Equal(t, 18.0, b.TotalPercent)
	assert.Equal(t, int64(1416), b.FinalPower)
}

func TestCalculate_NilBoards(t *testing.T) {
	c := NewCalculator(DefaultRules(), effect.LastWrite)
	b := c.Calculate(testDetails(), testInfo(), nil)
	assert.Zero(t, b.DaevanionFlat)
	assert.Equal(t, 1000.0, b.TotalFlat)
}

func TestCalculate_EmptyInputs(t *testing.T) {
	c := NewCalculator(DefaultRules(), effect.LastWrite)
	assert.Equal(t, Breakdown{}, c.Calculate(nil, nil, nil))
}

func TestCalculate_EquipmentOrderIndependent(t *testing.T) {
	c := NewCalculator(DefaultRules(), effect.LastWrite)
	d := testDetails()
	rev := []aion.EquipmentDetail{d[1], d[0]}
	assert.Equal(t, c.Calculate(d, nil, nil), c.Calculate(rev, nil, nil))
}

func TestCalculate_PercentBoardEntryIgnored(t *testing.T) {
	c := NewCalculator(DefaultRules(), effect.LastWrite)
	boards := []*aion.DaevanionBoard{
		{OpenStatEffectList: []aion.EffectDesc{{Desc: "攻击力 +100"}, {Desc: "攻击力 +2%"}}},
	}
	assert.Zero(t, c.Calculate(nil, nil, boards).DaevanionFlat)

	first := NewCalculator(DefaultRules(), effect.FirstWrite)
	assert.Equal(t, 102.0, first.Calculate(nil, nil, boards).DaevanionFlat)
}

func TestCalculate_CustomRules(t *testing.T) {
	c := NewCalculator(Rules{DaevanionFlat: []string{"生命力"}}, effect.LastWrite)
	b := c.Calculate(nil, nil, testBoards())
	assert.Equal(t, 500.0, b.DaevanionFlat)
}

func TestCalculate_Repeatable(t *testing.T) {
	c := NewCalculator(DefaultRules(), effect.LastWrite)
	a := c.Calculate(testDetails(), testInfo(), testBoards())
	b := c.Calculate(testDetails(), testInfo(), testBoards())
	assert.Equal(t, a, b)
}
