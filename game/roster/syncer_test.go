package roster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chunxia/legion/audit"
	"github.com/chunxia/legion/cache"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/character"
	"github.com/chunxia/legion/game/effect"
	"github.com/chunxia/legion/game/power"
	"github.com/chunxia/legion/model"
	"github.com/chunxia/legion/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu      sync.Mutex
	entries []audit.AuditEntry
}

func (r *recorder) Log(e audit.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) byAction(action string) []audit.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.AuditEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	up     *testutil.FakeUpstream
	db     *gorm.DB
	cache  cache.Cache
	audit  *recorder
	syncer *Syncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	up := testutil.NewFakeUpstream(t)
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	api := up.Client()
	resolver := board.NewResolver(board.NewStaticClassStore(testutil.SampleClasses()), api, 0, nil)
	svc := character.NewService(api, resolver, power.NewCalculator(power.DefaultRules(), effect.LastWrite), c, character.Config{}, nil)
	rec := &recorder{}
	return &fixture{
		up:     up,
		db:     db,
		cache:  c,
		audit:  rec,
		syncer: NewSyncer(db, c, svc, rec, Config{MemberDelay: time.Millisecond}, nil),
	}
}

// seedLegion registers two syncable members (power 1416 and 1121), one
// without a character and one whose character does not exist upstream.
func (f *fixture) seedLegion(t *testing.T) {
	t.Helper()
	f.up.AddCharacter("abc=", 1001, testutil.SampleCharacter("温禾"))
	weaker := testutil.SampleCharacter("小雨")
	delete(weaker.Details, 600)
	f.up.AddCharacter("def=", 1001, weaker)

	require.NoError(t, f.syncer.Seed(context.Background(), []model.Member{
		{ID: "a-wenhe", Name: "温禾", Role: model.RoleLeader, CharacterID: "abc=", ServerID: 1001},
		{ID: "b-xiaoyu", Name: "小雨", CharacterID: "def=", ServerID: 1001},
		{ID: "c-nochar", Name: "路人"},
		{ID: "d-gone", Name: "消失", CharacterID: "gone=", ServerID: 1001},
	}))
}

func TestSeed_Upserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.syncer.Seed(ctx, []model.Member{{ID: "m1", Name: "旧名"}}))
	require.NoError(t, f.syncer.Seed(ctx, []model.Member{{ID: "m1", Name: "新名", Role: model.RoleElite, CharacterID: "x", ServerID: 2}}))

	members, err := f.syncer.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "新名", members[0].Name)
	assert.Equal(t, model.RoleElite, members[0].Role)
	assert.Equal(t, "x", members[0].CharacterID)
	assert.Equal(t, 2, members[0].ServerID)
}

func TestSeed_DefaultRole(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.syncer.Seed(context.Background(), []model.Member{{ID: "m1", Name: "甲"}}))
	members, err := f.syncer.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, members[0].Role)
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	ctx := context.Background()

	res, err := f.syncer.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "d-gone", res.Failed[0].MemberID)

	var snap model.CharacterSnapshot
	require.NoError(t, f.db.Where("member_id = ?", "a-wenhe").First(&snap).Error)
	assert.Equal(t, int64(1416), snap.FinalPower)
	assert.Equal(t, "温禾", snap.CharacterName)
	assert.Equal(t, "劍星", snap.ClassName)
	assert.Equal(t, 45, snap.Level)
	assert.Equal(t, 3200.0, snap.ItemLevel)
	assert.Equal(t, res.RunID, snap.SyncRunID)
	assert.Contains(t, string(snap.AttackPower), `"finalPower":1416`)

	score, err := f.cache.ZScore(ctx, RankingKey, "b-xiaoyu")
	require.NoError(t, err)
	assert.Equal(t, 1121.0, score)

	members := f.audit.byAction(audit.ActionMemberSync)
	require.Len(t, members, 4)
	for _, e := range members {
		assert.Equal(t, res.RunID, e.TraceID)
		switch e.MemberID {
		case "c-nochar":
			assert.Equal(t, model.MsgCharacterMissing, e.Error)
		case "d-gone":
			assert.NotEmpty(t, e.Error)
		default:
			assert.Empty(t, e.Error)
		}
	}
	assert.Len(t, f.audit.byAction(audit.ActionSyncRun), 1)

	ok, err := f.cache.Exists(ctx, lockKey)
	require.NoError(t, err)
	assert.False(t, ok, "lock released")
}

func TestRun_RefetchesAndUpserts(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	ctx := context.Background()

	_, err := f.syncer.Run(ctx)
	require.NoError(t, err)
	_, err = f.syncer.Run(ctx)
	require.NoError(t, err)

	var count int64
	f.db.Model(&model.CharacterSnapshot{}).Where("member_id = ?", "a-wenhe").Count(&count)
	assert.Equal(t, int64(1), count)
	// three members with a character binding, fetched once per run
	assert.Equal(t, 6, f.up.Hits("/character/info"))
}

func TestRun_Locked(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	ctx := context.Background()

	ok, err := f.cache.SetNX(ctx, lockKey, "1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.syncer.Run(ctx)
	assert.ErrorIs(t, err, ErrSyncRunning)
	assert.NoError(t, f.syncer.Task(ctx))
	assert.Zero(t, f.up.Hits("/character/info"))
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	f.syncer.cfg.MemberDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()
	res, err := f.syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced, "stops while waiting before the second member")
}

func TestRanking(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	ctx := context.Background()
	_, err := f.syncer.Run(ctx)
	require.NoError(t, err)

	top, err := f.syncer.Ranking(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "a-wenhe", top[0].MemberID)
	assert.Equal(t, "温禾", top[0].MemberName)
	assert.Equal(t, model.RoleLeader, top[0].Role)
	assert.Equal(t, int64(1416), top[0].FinalPower)
	assert.Equal(t, "b-xiaoyu", top[1].MemberID)
	assert.Equal(t, int64(1121), top[1].FinalPower)

	top, err = f.syncer.Ranking(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestRanking_FallsBackToSnapshots(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	ctx := context.Background()
	_, err := f.syncer.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, f.cache.Del(ctx, RankingKey))
	top, err := f.syncer.Ranking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a-wenhe", top[0].MemberID)

	ids, err := f.cache.ZRevRange(ctx, RankingKey, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-wenhe", "b-xiaoyu"}, ids, "sorted set refilled")
}

func TestRanking_RefillCoversWholeRoster(t *testing.T) {
	f := newFixture(t)
	f.seedLegion(t)
	ctx := context.Background()
	_, err := f.syncer.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, f.cache.Del(ctx, RankingKey))
	top, err := f.syncer.Ranking(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a-wenhe", top[0].MemberID)

	top, err = f.syncer.Ranking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b-xiaoyu", top[1].MemberID)
	assert.Equal(t, 2, top[1].Rank)
}

func TestRanking_Empty(t *testing.T) {
	f := newFixture(t)
	top, err := f.syncer.Ranking(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.NotNil(t, top)
}
