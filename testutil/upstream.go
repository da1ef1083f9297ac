package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/compare"
)

// FakeCharacter is the upstream state of one character.
type FakeCharacter struct {
	Info      aion.CharacterInfo
	Equipment aion.CharacterEquipment
	Details   map[int]aion.EquipmentDetail // by item id
	Boards    map[int]aion.DaevanionBoard  // by board id
}

// FakeUpstream emulates the AION2 character API over httptest.
type FakeUpstream struct {
	*httptest.Server

	mu         sync.Mutex
	chars      map[string]*FakeCharacter
	failBoards map[int]bool
	hits       map[string]int
}

// NewFakeUpstream starts a fake API server that is closed with the test.
func NewFakeUpstream(t *testing.T) *FakeUpstream {
	t.Helper()
	f := &FakeUpstream{
		chars:      make(map[string]*FakeCharacter),
		failBoards: make(map[int]bool),
		hits:       make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/character/info", f.handle(func(c *FakeCharacter, _ *http.Request) (interface{}, int) {
		return c.Info, http.StatusOK
	}))
	mux.HandleFunc("/character/equipment", f.handle(func(c *FakeCharacter, _ *http.Request) (interface{}, int) {
		return c.Equipment, http.StatusOK
	}))
	mux.HandleFunc("/character/equipment/item", f.handle(func(c *FakeCharacter, r *http.Request) (interface{}, int) {
		id, _ := strconv.Atoi(r.URL.Query().Get("id"))
		d, ok := c.Details[id]
		if !ok {
			return nil, http.StatusNotFound
		}
		return d, http.StatusOK
	}))
	mux.HandleFunc("/character/daevanion/detail", f.handle(func(c *FakeCharacter, r *http.Request) (interface{}, int) {
		id, _ := strconv.Atoi(r.URL.Query().Get("boardId"))
		f.mu.Lock()
		fail := f.failBoards[id]
		f.mu.Unlock()
		if fail {
			return nil, http.StatusInternalServerError
		}
		b, ok := c.Boards[id]
		if !ok {
			return nil, http.StatusNotFound
		}
		return b, http.StatusOK
	}))
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeUpstream) handle(fn func(*FakeCharacter, *http.Request) (interface{}, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.mu.Lock()
		f.hits[r.URL.Path]++
		c, ok := f.chars[key(q.Get("characterId"), q.Get("serverId"))]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, code := fn(c, r)
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func key(characterID, serverID string) string { return serverID + "/" + characterID }

// AddCharacter registers c under characterID and serverID.
func (f *FakeUpstream) AddCharacter(characterID string, serverID int, c *FakeCharacter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chars[key(characterID, strconv.Itoa(serverID))] = c
}

// FailBoard makes every fetch of boardID answer 500.
func (f *FakeUpstream) FailBoard(boardID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failBoards[boardID] = true
}

// Hits returns how many requests reached path.
func (f *FakeUpstream) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// Client returns an API client pointed at the fake server.
func (f *FakeUpstream) Client() *aion.Client {
	return aion.NewClient(aion.Config{BaseURL: f.URL, Timeout: 2 * time.Second}, nil)
}

// ---- sample data ----

// SampleClasses maps two classes with six boards each.
func SampleClasses() board.ClassConfig {
	return board.ClassConfig{
		Version:     "1.0.1",
		LastUpdated: "2025-01-01",
		Classes: []board.ClassMapping{
			{ClassID: 1, ClassName: "劍星", ClassNameSimplified: "剑星", ClassNameEn: "Gladiator", BoardIDs: []int{11, 12, 13, 14, 15, 16}},
			{ClassID: 4, ClassName: "弓星", ClassNameSimplified: "弓星", ClassNameEn: "Ranger", BoardIDs: []int{41, 42, 43, 44, 45, 46}},
		},
	}
}

// SampleCharacter builds a character of class 劍星 (id 1) whose attack power
// breakdown is equipmentFlat 1000, daevanionFlat 200, equipmentPercent 10,
// destruction 5, strength 3, final power 1416.
func SampleCharacter(name string) *FakeCharacter {
	classID := 1
	classEn := "Gladiator"
	c := &FakeCharacter{
		Info: aion.CharacterInfo{
			Profile: aion.Profile{CharacterName: name, ClassName: "劍星", CharacterLevel: 45, ServerName: "希埃爾"},
			Stat: aion.StatBlock{StatList: []aion.Stat{
				{Type: "Power", Name: "威力", Value: 90, StatSecondList: []string{"攻击力增加 +3%"}},
				{Type: "Agility", Name: "敏捷", Value: 80},
				{Type: "Accuracy", Name: "精准", Value: 70},
				{Type: "Will", Name: "意志", Value: 60},
				{Type: "Knowledge", Name: "知识", Value: 50},
				{Type: "Destruction", Name: "破坏", Value: 40, StatSecondList: []string{"攻击力增加 +5%"}},
				{Type: "Critical", Name: "暴击", Value: 500},
				{Type: compare.ItemLevelStat, Name: "装备等级", Value: 3200},
			}},
			Ranking: aion.RankingBlock{RankingList: []aion.RankingItem{{ClassID: &classID, ClassName: &classEn}}},
		},
		Equipment: aion.CharacterEquipment{
			Skill: aion.SkillBlock{SkillList: []aion.Skill{
				{ID: 101, Name: "猛烈一击", SkillLevel: 10, Acquired: 1},
				{ID: 102, Name: "防御姿态", SkillLevel: 5, Acquired: 1},
				{ID: 103, Name: "未习得", SkillLevel: 0, Acquired: 0},
			}},
			Equipment: aion.EquipmentBlock{EquipmentList: []aion.EquipmentItem{
				{ID: 500, Name: "长剑", EnchantLevel: 10, ExceedLevel: 2, SlotPos: 1, SlotPosName: "主手"},
				{ID: 600, Name: "项链", EnchantLevel: 5, SlotPos: 10, SlotPosName: "项链"},
			}},
		},
		Details: map[int]aion.EquipmentDetail{
			500: {ID: 500, MainStats: []aion.ItemStat{{Name: "攻击力", Value: "600", Extra: "150"}}, SubStats: []aion.ItemStat{{Name: "攻击力增加", Value: "4%"}}},
			600: {ID: 600, MainStats: []aion.ItemStat{{Name: "攻击力", Value: "250"}, {Name: "攻击力", Value: "6%"}}},
		},
		Boards: map[int]aion.DaevanionBoard{},
	}
	for i, id := range []int{11, 12, 13, 14, 15, 16} {
		b := aion.DaevanionBoard{
			BoardID:             id,
			OpenStatEffectList:  []aion.EffectDesc{{Desc: "攻击力 +20"}, {Desc: "生命力 +100"}},
			OpenSkillEffectList: []aion.EffectDesc{{Desc: "猛烈一击 +1"}},
		}
		if i == 0 {
			b.OpenStatEffectList = append(b.OpenStatEffectList, aion.EffectDesc{Desc: "PVE攻击力 +80"})
		}
		c.Boards[id] = b
	}
	return c
}
