package aion

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ---- Character info ----

// CharacterInfo is the payload of character/info.
type CharacterInfo struct {
	Stat      StatBlock      `json:"stat"`
	Profile   Profile        `json:"profile"`
	Ranking   RankingBlock   `json:"ranking"`
	Daevanion DaevanionBlock `json:"daevanion"`
}

type StatBlock struct {
	StatList []Stat `json:"statList"`
}

type RankingBlock struct {
	RankingList []RankingItem `json:"rankingList"`
}

type DaevanionBlock struct {
	BoardList []BoardSummary `json:"boardList"`
}

type Profile struct {
	CharacterID    string `json:"characterId"`
	CharacterName  string `json:"characterName"`
	ServerID       int    `json:"serverId"`
	ServerName     string `json:"serverName"`
	RegionName     string `json:"regionName"`
	PcID           int    `json:"pcId"`
	ClassName      string `json:"className"`
	RaceID         int    `json:"raceId"`
	RaceName       string `json:"raceName"`
	CharacterLevel int    `json:"characterLevel"`
	TitleName      string `json:"titleName"`
	ProfileImage   string `json:"profileImage"`
}

// Stat is one entry of the character stat list. StatSecondList holds the
// derived effect lines such as "攻击力增加 +4.5%".
type Stat struct {
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	Value          float64  `json:"value"`
	StatSecondList []string `json:"statSecondList"`
}

type RankingItem struct {
	RankingContentsType int     `json:"rankingContentsType"`
	RankingContentsName string  `json:"rankingContentsName"`
	Rank                *int    `json:"rank"`
	ClassID             *int    `json:"classId"`
	ClassName           *string `json:"className"`
	Point               *int    `json:"point"`
}

// BoardSummary is the per-board progress shown on the character page.
type BoardSummary struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	TotalNodeCount int    `json:"totalNodeCount"`
	OpenNodeCount  int    `json:"openNodeCount"`
	Icon           string `json:"icon"`
	Open           int    `json:"open"`
}

// StatValue returns the value of the first stat with the given type.
func (ci *CharacterInfo) StatValue(statType string) (float64, bool) {
	if ci == nil {
		return 0, false
	}
	for _, s := range ci.Stat.StatList {
		if s.Type == statType {
			return s.Value, true
		}
	}
	return 0, false
}

// FindStat returns the first stat with the given type.
func (ci *CharacterInfo) FindStat(statType string) *Stat {
	if ci == nil {
		return nil
	}
	for i := range ci.Stat.StatList {
		if ci.Stat.StatList[i].Type == statType {
			return &ci.Stat.StatList[i]
		}
	}
	return nil
}

// RankingClass returns the class id and English class name carried by the
// first ranking entry that has them.
func (ci *CharacterInfo) RankingClass() (id int, nameEn string) {
	if ci == nil {
		return 0, ""
	}
	for _, r := range ci.Ranking.RankingList {
		if id == 0 && r.ClassID != nil {
			id = *r.ClassID
		}
		if nameEn == "" && r.ClassName != nil {
			nameEn = *r.ClassName
		}
		if id != 0 && nameEn != "" {
			break
		}
	}
	return id, nameEn
}

// ---- Equipment ----

// CharacterEquipment is the payload of character/equipment.
type CharacterEquipment struct {
	Petwing   PetWing        `json:"petwing"`
	Skill     SkillBlock     `json:"skill"`
	Equipment EquipmentBlock `json:"equipment"`
}

type PetWing struct {
	Pet  *Pet  `json:"pet"`
	Wing *Wing `json:"wing"`
}

type Pet struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
	Icon  string `json:"icon"`
}

type Wing struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	EnchantLevel int    `json:"enchantLevel"`
	Grade        string `json:"grade"`
	Icon         string `json:"icon"`
}

type SkillBlock struct {
	SkillList []Skill `json:"skillList"`
}

type Skill struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NeedLevel  int    `json:"needLevel"`
	SkillLevel int    `json:"skillLevel"`
	Icon       string `json:"icon"`
	Category   string `json:"category"`
	Acquired   int    `json:"acquired"`
	Equip      int    `json:"equip"`
}

type EquipmentBlock struct {
	EquipmentList []EquipmentItem `json:"equipmentList"`
	SkinList      []EquipmentItem `json:"skinList"`
}

type EquipmentItem struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	EnchantLevel int    `json:"enchantLevel"`
	ExceedLevel  int    `json:"exceedLevel"`
	Grade        string `json:"grade"`
	SlotPos      int    `json:"slotPos"`
	SlotPosName  string `json:"slotPosName"`
	Icon         string `json:"icon"`
}

// TotalEnchantLevel is the level the item detail endpoint expects.
func (e EquipmentItem) TotalEnchantLevel() int {
	return e.EnchantLevel + e.ExceedLevel
}

// EquipmentDetail is the payload of character/equipment/item, enriched with
// the slot of the equipment it was requested for.
type EquipmentDetail struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Grade          string     `json:"grade"`
	EnchantLevel   int        `json:"enchantLevel"`
	SlotPos        int        `json:"slotPos"`
	SlotPosName    string     `json:"slotPosName"`
	MainStats      []ItemStat `json:"mainStats"`
	SubStats       []ItemStat `json:"subStats"`
	MagicStoneStat []ItemStat `json:"magicStoneStat"`
	GodStoneStat   []GodStone `json:"godStoneStat"`
}

// ItemStat is one stat line of an item. Value is the inherent amount, Extra
// is either the enchant bonus or, when Exceed is set, the exceed bonus.
type ItemStat struct {
	Name     string    `json:"name"`
	Value    StatValue `json:"value"`
	Extra    StatValue `json:"extra"`
	MinValue StatValue `json:"minValue"`
	Exceed   bool      `json:"exceed"`
}

type GodStone struct {
	Name  string `json:"name"`
	Desc  string `json:"desc"`
	Grade string `json:"grade"`
	Icon  string `json:"icon"`
}

// StatValue is a stat amount as the API sends it: "120", "4.5%", "1,200" or
// a bare JSON number.
type StatValue string

func (v *StatValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StatValue(s)
		return nil
	}
	*v = StatValue(b)
	return nil
}

// Percent reports whether the value is a percentage.
func (v StatValue) Percent() bool {
	return strings.Contains(string(v), "%")
}

// Float returns the numeric part of the value, 0 when there is none.
func (v StatValue) Float() float64 {
	s := strings.TrimSpace(string(v))
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// ---- Daevanion ----

// DaevanionBoard is one board payload of character/daevanion/detail.
type DaevanionBoard struct {
	BoardID             int          `json:"boardId"`
	NodeList            []BoardNode  `json:"nodeList"`
	OpenStatEffectList  []EffectDesc `json:"openStatEffectList"`
	OpenSkillEffectList []EffectDesc `json:"openSkillEffectList"`
}

type BoardNode struct {
	BoardID    int          `json:"boardId"`
	NodeID     int          `json:"nodeId"`
	Name       string       `json:"name"`
	Row        int          `json:"row"`
	Col        int          `json:"col"`
	Grade      string       `json:"grade"`
	Type       string       `json:"type"`
	Icon       string       `json:"icon"`
	EffectList []EffectDesc `json:"effectList"`
	Open       int          `json:"open"`
}

type EffectDesc struct {
	Desc string `json:"desc"`
}

// StatDescs returns the open stat effect descriptions in API order.
func (b *DaevanionBoard) StatDescs() []string {
	return descs(b.OpenStatEffectList)
}

// SkillDescs returns the open skill effect descriptions in API order.
func (b *DaevanionBoard) SkillDescs() []string {
	return descs(b.OpenSkillEffectList)
}

func descs(list []EffectDesc) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Desc)
	}
	return out
}
