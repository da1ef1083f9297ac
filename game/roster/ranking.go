package roster

import (
	"context"
	"time"

	"github.com/chunxia/legion/model"
	"go.uber.org/zap"
)

const (
	DefaultRankingLimit = 20
	MaxRankingLimit     = 100
)

// RankEntry is one row of the attack power ranking.
type RankEntry struct {
	Rank          int       `json:"rank"`
	MemberID      string    `json:"memberId"`
	MemberName    string    `json:"memberName"`
	Role          string    `json:"role"`
	CharacterName string    `json:"characterName"`
	ClassName     string    `json:"className"`
	ServerID      int       `json:"serverId"`
	Level         int       `json:"level"`
	ItemLevel     float64   `json:"itemLevel"`
	FinalPower    int64     `json:"finalPower"`
	SyncedAt      time.Time `json:"syncedAt"`
}

// Ranking returns the top members by final attack power. The sorted set is
// read first; when it is empty or unavailable the snapshot table is used and
// the set is refilled.
func (s *Syncer) Ranking(ctx context.Context, limit int) ([]RankEntry, error) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	if limit > MaxRankingLimit {
		limit = MaxRankingLimit
	}

	ids, err := s.cache.ZRevRange(ctx, RankingKey, 0, int64(limit-1))
	if err != nil {
		s.logger.Warn("ranking cache read failed", zap.Error(err))
	}
	if err == nil && len(ids) > 0 {
		return s.fromIDs(ctx, ids)
	}

	// Every snapshot goes back into the set, not just the requested page.
	var scores []model.CharacterSnapshot
	if err := s.db.WithContext(ctx).
		Select("member_id", "final_power").
		Order("final_power DESC").Order("member_id DESC").
		Find(&scores).Error; err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(scores))
	for _, snap := range scores {
		if err := s.cache.ZAdd(ctx, RankingKey, float64(snap.FinalPower), snap.MemberID); err != nil {
			s.logger.Warn("ranking refill failed", zap.String("member_id", snap.MemberID), zap.Error(err))
		}
		ids = append(ids, snap.MemberID)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return s.fromIDs(ctx, ids)
}

func (s *Syncer) fromIDs(ctx context.Context, ids []string) ([]RankEntry, error) {
	if len(ids) == 0 {
		return []RankEntry{}, nil
	}
	var snaps []model.CharacterSnapshot
	if err := s.db.WithContext(ctx).
		Omit("info", "equipment", "daevanion", "attack_power").
		Where("member_id IN ?", ids).Find(&snaps).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]model.CharacterSnapshot, len(snaps))
	for _, snap := range snaps {
		byID[snap.MemberID] = snap
	}
	ordered := make([]model.CharacterSnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := byID[id]; ok {
			ordered = append(ordered, snap)
		}
	}
	return s.entries(ctx, ordered)
}

// entries joins snapshots with member names. snaps is already ranked.
func (s *Syncer) entries(ctx context.Context, snaps []model.CharacterSnapshot) ([]RankEntry, error) {
	out := make([]RankEntry, 0, len(snaps))
	if len(snaps) == 0 {
		return out, nil
	}
	ids := make([]string, len(snaps))
	for i, snap := range snaps {
		ids[i] = snap.MemberID
	}
	var members []model.Member
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]model.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	for i, snap := range snaps {
		m := byID[snap.MemberID]
		out = append(out, RankEntry{
			Rank:          i + 1,
			MemberID:      snap.MemberID,
			MemberName:    m.Name,
			Role:          m.Role,
			CharacterName: snap.CharacterName,
			ClassName:     snap.ClassName,
			ServerID:      snap.ServerID,
			Level:         snap.Level,
			ItemLevel:     snap.ItemLevel,
			FinalPower:    snap.FinalPower,
			SyncedAt:      snap.SyncedAt,
		})
	}
	return out, nil
}
