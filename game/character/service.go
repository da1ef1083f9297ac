// Package character loads a character in stages and derives its board
// effects, attack power and comparisons.
package character

import (
	"context"
	"fmt"
	"time"

	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/cache"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/compare"
	"github.com/chunxia/legion/game/power"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage names used in cache keys.
const (
	StageBasic    = "basic"
	StageComplete = "complete"
	StageCompare  = "compare"

	stageCompareIndex = "compare_index"
)

// detailConcurrency bounds parallel equipment detail requests per character.
const detailConcurrency = 4

// Upstream is the subset of the AION2 API the service needs.
type Upstream interface {
	board.Fetcher
	CharacterInfo(ctx context.Context, characterID string, serverID int) (*aion.CharacterInfo, error)
	CharacterEquipment(ctx context.Context, characterID string, serverID int) (*aion.CharacterEquipment, error)
	EquipmentDetail(ctx context.Context, characterID string, serverID int, item aion.EquipmentItem) (*aion.EquipmentDetail, error)
}

// Basic is the first loading stage: profile, stats, skills and the
// equipment list.
type Basic struct {
	CharacterID string                   `json:"characterId"`
	ServerID    int                      `json:"serverId"`
	Info        *aion.CharacterInfo      `json:"characterInfo"`
	Equipment   *aion.CharacterEquipment `json:"equipmentData"`
	FetchedAt   time.Time                `json:"fetchedAt"`
}

// Complete adds everything derived from further upstream calls.
type Complete struct {
	Basic
	ClassID          int                    `json:"classId"`
	EquipmentDetails []aion.EquipmentDetail `json:"equipmentDetails"`
	Boards           []*aion.DaevanionBoard `json:"daevanionBoards"`
	Daevanion        board.Summary          `json:"daevanion"`
	AttackPower      power.Breakdown        `json:"attackPower"`
	Disclaimer       string                 `json:"disclaimer"`
}

// Side returns the comparison view of c.
func (c *Complete) Side() compare.Side {
	ap := c.AttackPower
	return compare.Side{Info: c.Info, Equipment: c.Equipment, Power: &ap}
}

// Config tunes caching.
type Config struct {
	CharacterTTL time.Duration
	CompareTTL   time.Duration
}

// Service loads characters through the cache.
type Service struct {
	api      Upstream
	resolver *board.Resolver
	calc     *power.Calculator
	cache    cache.Cache
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a Service.
func NewService(api Upstream, resolver *board.Resolver, calc *power.Calculator, c cache.Cache, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CharacterTTL <= 0 {
		cfg.CharacterTTL = 8 * time.Hour
	}
	if cfg.CompareTTL <= 0 {
		cfg.CompareTTL = 4 * time.Hour
	}
	return &Service{api: api, resolver: resolver, calc: calc, cache: c, cfg: cfg, logger: logger}
}

// CacheKey returns the key a stage is cached under.
func CacheKey(stage string, serverID int, characterID string) string {
	return fmt.Sprintf("character:%s:%d:%s", stage, serverID, characterID)
}

// Basic loads info and the equipment list concurrently. Both are required.
func (s *Service) Basic(ctx context.Context, characterID string, serverID int) (*Basic, error) {
	key := CacheKey(StageBasic, serverID, characterID)
	var out Basic
	if s.load(ctx, key, &out) {
		return &out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := s.api.CharacterInfo(gctx, characterID, serverID)
		if err != nil {
			return fmt.Errorf("character info: %w", err)
		}
		out.Info = info
		return nil
	})
	g.Go(func() error {
		eq, err := s.api.CharacterEquipment(gctx, characterID, serverID)
		if err != nil {
			return fmt.Errorf("character equipment: %w", err)
		}
		out.Equipment = eq
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.CharacterID = characterID
	out.ServerID = serverID
	out.FetchedAt = time.Now()

	s.store(ctx, key, &out, s.cfg.CharacterTTL)
	return &out, nil
}

// Complete loads stage two on top of Basic: equipment details and Daevanion
// boards, then derives board effects and attack power. Failed details and
// boards are left out; only a failed Basic fails Complete.
func (s *Service) Complete(ctx context.Context, characterID string, serverID int) (*Complete, error) {
	key := CacheKey(StageComplete, serverID, characterID)
	var out Complete
	if s.load(ctx, key, &out) {
		return &out, nil
	}

	basic, err := s.Basic(ctx, characterID, serverID)
	if err != nil {
		return nil, err
	}
	out.Basic = *basic
	out.ClassID = s.ClassID(basic.Info)

	var g errgroup.Group
	g.Go(func() error {
		out.EquipmentDetails = s.equipmentDetails(ctx, characterID, serverID, basic.Equipment)
		return nil
	})
	g.Go(func() error {
		out.Boards = s.resolver.Resolve(ctx, out.ClassID, characterID, serverID)
		return nil
	})
	_ = g.Wait()

	out.Daevanion = board.Merge(out.Boards, s.calc.Policy()).Summary()
	out.AttackPower = s.calc.Calculate(out.EquipmentDetails, basic.Info, out.Boards)
	out.Disclaimer = power.Disclaimer

	// A cancelled load has lost its boards and details; serve it but keep it
	// out of the cache.
	if ctx.Err() == nil {
		s.store(ctx, key, &out, s.cfg.CharacterTTL)
	}
	return &out, nil
}

// AttackPower returns the breakdown from the complete stage.
func (s *Service) AttackPower(ctx context.Context, characterID string, serverID int) (power.Breakdown, error) {
	c, err := s.Complete(ctx, characterID, serverID)
	if err != nil {
		return power.Breakdown{}, err
	}
	return c.AttackPower, nil
}

// Daevanion fetches a single board without caching.
func (s *Service) Daevanion(ctx context.Context, characterID string, serverID, boardID int) (*aion.DaevanionBoard, error) {
	return s.api.DaevanionBoard(ctx, characterID, serverID, boardID)
}

// Compare builds the full comparison report between two characters and
// caches it.
func (s *Service) Compare(ctx context.Context, characterID string, serverID int, targetID string, targetServerID int) (*compare.Report, error) {
	key := compareKey(characterID, serverID, targetID, targetServerID)
	var report compare.Report
	if s.load(ctx, key, &report) {
		return &report, nil
	}

	var cur, tgt *Complete
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = s.Complete(gctx, characterID, serverID)
		return err
	})
	g.Go(func() (err error) {
		tgt, err = s.Complete(gctx, targetID, targetServerID)
		if err != nil {
			return fmt.Errorf("compare target: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report = compare.Build(cur.Side(), tgt.Side())
	s.store(ctx, key, &report, s.cfg.CompareTTL)
	s.indexCompare(ctx, key, characterID, serverID)
	s.indexCompare(ctx, key, targetID, targetServerID)
	return &report, nil
}

// CompareBasic is the fast first view of a comparison: the target is only
// loaded to its basic stage, so its attack power rows are pending. The
// result is not cached.
func (s *Service) CompareBasic(ctx context.Context, characterID string, serverID int, targetID string, targetServerID int) (*compare.Report, error) {
	var cur *Complete
	var tgt *Basic
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = s.Complete(gctx, characterID, serverID)
		return err
	})
	g.Go(func() (err error) {
		tgt, err = s.Basic(gctx, targetID, targetServerID)
		if err != nil {
			return fmt.Errorf("compare target: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report := compare.Build(cur.Side(), compare.Side{Info: tgt.Info, Equipment: tgt.Equipment})
	return &report, nil
}

func compareKey(characterID string, serverID int, targetID string, targetServerID int) string {
	return fmt.Sprintf("%s:%d:%s", CacheKey(StageCompare, serverID, characterID), targetServerID, targetID)
}

// compareIndexKey names the set of cached compare reports a character
// appears in, on either side.
func compareIndexKey(serverID int, characterID string) string {
	return CacheKey(stageCompareIndex, serverID, characterID)
}

func (s *Service) indexCompare(ctx context.Context, reportKey, characterID string, serverID int) {
	if err := s.cache.ZAdd(ctx, compareIndexKey(serverID, characterID), float64(time.Now().Unix()), reportKey); err != nil {
		s.logger.Warn("compare index write failed", zap.String("key", reportKey), zap.Error(err))
	}
}

// Invalidate drops every cached stage of a character and every cached
// compare report it is part of.
func (s *Service) Invalidate(ctx context.Context, characterID string, serverID int) error {
	index := compareIndexKey(serverID, characterID)
	reports, err := s.cache.ZRevRange(ctx, index, 0, -1)
	if err != nil {
		s.logger.Warn("compare index read failed", zap.String("key", index), zap.Error(err))
	}
	keys := append([]string{
		CacheKey(StageBasic, serverID, characterID),
		CacheKey(StageComplete, serverID, characterID),
		index,
	}, reports...)
	return s.cache.Del(ctx, keys...)
}

// ClassID resolves the class id: the ranking entry's class id first, then the
// profile class name, then the ranking's English class name. 0 when none
// match.
func (s *Service) ClassID(info *aion.CharacterInfo) int {
	if info == nil {
		return 0
	}
	id, nameEn := info.RankingClass()
	if id != 0 {
		return id
	}
	classes := s.resolver.Classes()
	if c, ok := classes.ByChineseName(info.Profile.ClassName); ok {
		return c.ClassID
	}
	if nameEn != "" {
		if c, ok := classes.ByEnglishName(nameEn); ok {
			return c.ClassID
		}
	}
	return 0
}

// equipmentDetails fetches item details in list order. Failed items are
// logged and skipped.
func (s *Service) equipmentDetails(ctx context.Context, characterID string, serverID int, eq *aion.CharacterEquipment) []aion.EquipmentDetail {
	if eq == nil {
		return nil
	}
	items := eq.Equipment.EquipmentList
	slots := make([]*aion.EquipmentDetail, len(items))
	var g errgroup.Group
	g.SetLimit(detailConcurrency)
	for i, item := range items {
		g.Go(func() error {
			d, err := s.api.EquipmentDetail(ctx, characterID, serverID, item)
			if err != nil {
				s.logger.Warn("equipment detail fetch failed",
					zap.Int("item_id", item.ID),
					zap.String("slot", item.SlotPosName),
					zap.String("character_id", characterID),
					zap.Error(err))
				return nil
			}
			slots[i] = d
			return nil
		})
	}
	_ = g.Wait()

	out := make([]aion.EquipmentDetail, 0, len(items))
	for _, d := range slots {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

func (s *Service) load(ctx context.Context, key string, out interface{}) bool {
	found, err := cache.GetJSON(ctx, s.cache, key, out)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *Service) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if err := cache.SetJSON(ctx, s.cache, key, v, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
