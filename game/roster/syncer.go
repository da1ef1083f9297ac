// Package roster keeps legion members' character snapshots and the attack
// power ranking up to date.
package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chunxia/legion/audit"
	"github.com/chunxia/legion/cache"
	"github.com/chunxia/legion/game/character"
	"github.com/chunxia/legion/game/compare"
	"github.com/chunxia/legion/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// TaskName is the scheduler task running Task.
	TaskName   = "roster_sync"
	RankingKey = "ranking:power"
	lockKey    = "roster:sync:lock"
	lockTTL    = 30 * time.Minute
)

// ErrSyncRunning is returned when another run holds the sync lock.
var ErrSyncRunning = errors.New("roster: sync already running")

// Loader loads a character through the cache.
type Loader interface {
	Invalidate(ctx context.Context, characterID string, serverID int) error
	Complete(ctx context.Context, characterID string, serverID int) (*character.Complete, error)
}

// Config tunes a sync run.
type Config struct {
	MemberDelay time.Duration
}

// Syncer pulls every configured member's character and persists the result.
type Syncer struct {
	db     *gorm.DB
	cache  cache.Cache
	loader Loader
	audit  audit.Logger
	cfg    Config
	logger *zap.Logger
}

// NewSyncer creates a Syncer. auditor may be nil.
func NewSyncer(db *gorm.DB, c cache.Cache, loader Loader, auditor audit.Logger, cfg Config, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{db: db, cache: c, loader: loader, audit: auditor, cfg: cfg, logger: logger}
}

// Seed upserts members by id. Existing members get their name, role and
// character binding overwritten.
func (s *Syncer) Seed(ctx context.Context, members []model.Member) error {
	if len(members) == 0 {
		return nil
	}
	for i := range members {
		if members[i].Role == "" {
			members[i].Role = model.RoleMember
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "character_id", "server_id", "updated_at"}),
	}).Create(&members).Error
}

// Members returns all members ordered by id.
func (s *Syncer) Members(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	if err := s.db.WithContext(ctx).Order("id").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// MemberFailure is one member a run could not sync.
type MemberFailure struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Error    string `json:"error"`
}

// RunResult summarizes one sync run.
type RunResult struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Total      int             `json:"total"`
	Synced     int             `json:"synced"`
	Skipped    int             `json:"skipped"`
	Failed     []MemberFailure `json:"failed"`
}

// Run syncs every member once. Members without a complete character binding
// are skipped and a failing member does not stop the run. Only one run may
// hold the lock at a time.
func (s *Syncer) Run(ctx context.Context) (*RunResult, error) {
	ok, err := s.cache.SetNX(ctx, lockKey, "1", lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncRunning
	}
	defer func() {
		if err := s.cache.Del(context.Background(), lockKey); err != nil {
			s.logger.Warn("release sync lock failed", zap.Error(err))
		}
	}()

	members, err := s.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	res := &RunResult{RunID: uuid.New().String(), StartedAt: time.Now(), Total: len(members)}
	log := s.logger.With(zap.String("run_id", res.RunID))
	log.Info("roster sync started", zap.Int("members", len(members)))

	for i := range members {
		m := &members[i]
		if i > 0 && s.cfg.MemberDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.MemberDelay):
			}
		}
		if ctx.Err() != nil {
			log.Warn("roster sync cancelled", zap.Int("done", i))
			break
		}

		if msg := m.CharacterError(); msg != "" {
			res.Skipped++
			s.record(audit.AuditEntry{
				TraceID:  res.RunID,
				MemberID: m.ID,
				Action:   audit.ActionMemberSync,
				Error:    msg,
			})
			continue
		}

		start := time.Now()
		power, err := s.syncMember(ctx, res.RunID, m)
		entry := audit.AuditEntry{
			TraceID:     res.RunID,
			MemberID:    m.ID,
			CharacterID: m.CharacterID,
			ServerID:    m.ServerID,
			Action:      audit.ActionMemberSync,
			DurationMs:  int(time.Since(start).Milliseconds()),
		}
		if err != nil {
			log.Warn("member sync failed", zap.String("member_id", m.ID), zap.Error(err))
			res.Failed = append(res.Failed, MemberFailure{MemberID: m.ID, Name: m.Name, Error: err.Error()})
			entry.Error = err.Error()
		} else {
			res.Synced++
			entry.Response = map[string]int64{"finalPower": power}
		}
		s.record(entry)
	}

	res.FinishedAt = time.Now()
	s.record(audit.AuditEntry{
		TraceID:    res.RunID,
		Action:     audit.ActionSyncRun,
		Response:   res,
		DurationMs: int(res.FinishedAt.Sub(res.StartedAt).Milliseconds()),
	})
	log.Info("roster sync finished",
		zap.Int("synced", res.Synced),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

// Task adapts Run to the scheduler. A run already in progress is not an
// error for the schedule.
func (s *Syncer) Task(ctx context.Context) error {
	_, err := s.Run(ctx)
	if errors.Is(err, ErrSyncRunning) {
		return nil
	}
	return err
}

func (s *Syncer) syncMember(ctx context.Context, runID string, m *model.Member) (int64, error) {
	if err := s.loader.Invalidate(ctx, m.CharacterID, m.ServerID); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("member_id", m.ID), zap.Error(err))
	}
	c, err := s.loader.Complete(ctx, m.CharacterID, m.ServerID)
	if err != nil {
		return 0, err
	}

	snap := model.CharacterSnapshot{
		MemberID:    m.ID,
		CharacterID: m.CharacterID,
		ServerID:    m.ServerID,
		FinalPower:  c.AttackPower.FinalPower,
		Info:        toJSON(c.Info),
		Equipment:   toJSON(c.Equipment),
		Daevanion:   toJSON(c.Daevanion),
		AttackPower: toJSON(c.AttackPower),
		SyncRunID:   runID,
		SyncedAt:    time.Now(),
	}
	if c.Info != nil {
		snap.CharacterName = c.Info.Profile.CharacterName
		snap.ClassName = c.Info.Profile.ClassName
		snap.Level = c.Info.Profile.CharacterLevel
		snap.ItemLevel, _ = c.Info.StatValue(compare.ItemLevelStat)
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"character_id", "server_id", "character_name", "class_name", "level", "item_level",
			"final_power", "info", "equipment", "daevanion", "attack_power", "sync_run_id", "synced_at", "updated_at",
		}),
	}).Create(&snap).Error
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	if err := s.cache.ZAdd(ctx, RankingKey, float64(snap.FinalPower), m.ID); err != nil {
		s.logger.Warn("ranking update failed", zap.String("member_id", m.ID), zap.Error(err))
	}
	return snap.FinalPower, nil
}

func (s *Syncer) record(e audit.AuditEntry) {
	if s.audit != nil {
		s.audit.Log(e)
	}
}

func toJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
