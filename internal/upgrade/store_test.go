package upgrade

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/clan"
)

type fakeRepo struct {
	mu       sync.Mutex
	rows     map[int32]Levels
	failAll  bool
	failOnce bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[int32]Levels)}
}

func (f *fakeRepo) LoadAllUpgrades(ctx context.Context) (map[int32]Levels, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("store unreachable")
	}
	out := make(map[int32]Levels, len(f.rows))
	for k, v := range f.rows {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepo) SaveUpgrades(ctx context.Context, clanID int32, lv Levels) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store unreachable")
	}
	if f.failOnce {
		f.failOnce = false
		return errors.New("store unreachable")
	}
	f.rows[clanID] = lv
	return nil
}

type syncAsync struct{}

func (syncAsync) Submit(op string, fn func(ctx context.Context) error) {
	fn(context.Background()) //nolint:errcheck
}

// queuedAsync defers submitted jobs until drain, so saves from several
// purchases can be interleaved deliberately.
type queuedAsync struct {
	mu   sync.Mutex
	jobs []func(ctx context.Context) error
}

func (q *queuedAsync) Submit(op string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	q.jobs = append(q.jobs, fn)
	q.mu.Unlock()
}

func (q *queuedAsync) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		fn(context.Background()) //nolint:errcheck
	}
}

func newTestStore(repo *fakeRepo) (*Store, *clan.StaticDirectory) {
	dir := clan.NewStaticDirectory()
	dir.SetBalance(7, 10_000_000)
	return NewStore(DefaultConfig(), repo, syncAsync{}, dir), dir
}

func TestLevelOf_LazyZeroRecord(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(newFakeRepo())

	assert.Equal(t, int32(0), s.LevelOf(7, TypeSpawnerRate))
	assert.Equal(t, 0.0, s.BonusPercent(7, TypeCropGrowth))
}

func TestPurchase_BumpsLevelAndPersists(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	s, dir := newTestStore(repo)

	require.True(t, s.Purchase(7, TypeSpawnerRate))
	assert.Equal(t, int32(1), s.LevelOf(7, TypeSpawnerRate))
	assert.Equal(t, 5.0, s.BonusPercent(7, TypeSpawnerRate))
	assert.Equal(t, int64(10_000_000-100_000), dir.ClanBalance(7))

	repo.mu.Lock()
	saved := repo.rows[7]
	repo.mu.Unlock()
	assert.Equal(t, int32(1), saved.SpawnerRate)
}

func TestPurchase_CostCurve(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(newFakeRepo())

	// cost(level) = base × (level+1): 100k, then 200k.
	assert.Equal(t, int64(100_000), s.Cost(7, TypeSpawnerRate))
	require.True(t, s.Purchase(7, TypeSpawnerRate))
	assert.Equal(t, int64(200_000), s.Cost(7, TypeSpawnerRate))
	require.True(t, s.Purchase(7, TypeSpawnerRate))
	assert.Equal(t, int64(10_000_000-300_000), dir.ClanBalance(7))
}

func TestPurchase_MaxLevelFails(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(newFakeRepo())

	for i := int32(0); i < DefaultConfig().ExtraShieldHours.MaxLevel; i++ {
		require.True(t, s.Purchase(7, TypeExtraShieldHours))
	}
	balance := dir.ClanBalance(7)

	assert.False(t, s.Purchase(7, TypeExtraShieldHours))
	assert.Equal(t, DefaultConfig().ExtraShieldHours.MaxLevel, s.LevelOf(7, TypeExtraShieldHours))
	assert.Equal(t, balance, dir.ClanBalance(7), "failed purchase must not touch the treasury")
	assert.Equal(t, int64(0), s.Cost(7, TypeExtraShieldHours))
}

func TestPurchase_DebitFailureIsNoOp(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	s, dir := newTestStore(repo)
	dir.SetBalance(7, 10) // broke

	assert.False(t, s.Purchase(7, TypeExpBoost))
	assert.Equal(t, int32(0), s.LevelOf(7, TypeExpBoost))
	assert.Equal(t, int64(10), dir.ClanBalance(7))

	repo.mu.Lock()
	_, saved := repo.rows[7]
	repo.mu.Unlock()
	assert.False(t, saved, "nothing persisted")
}

func TestPurchase_PersistFailureRollsBackAndRefunds(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	repo.failAll = true
	s, dir := newTestStore(repo)

	// The call itself reports success (debit worked, level bumped), but
	// the failed write must round-trip the observable state back.
	assert.True(t, s.Purchase(7, TypeCropGrowth))
	assert.Equal(t, int32(0), s.LevelOf(7, TypeCropGrowth), "level reverted")
	assert.Equal(t, int64(10_000_000), dir.ClanBalance(7), "money refunded")
}

func TestPurchase_RollbackConvergesStoreWithLaterSaveInFlight(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	repo.failOnce = true
	q := &queuedAsync{}
	dir := clan.NewStaticDirectory()
	dir.SetBalance(7, 10_000_000)
	s := NewStore(DefaultConfig(), repo, q, dir)

	// Two purchases queue their saves before either runs; the first save
	// fails, the second lands at level 2.
	require.True(t, s.Purchase(7, TypeSpawnerRate))
	require.True(t, s.Purchase(7, TypeSpawnerRate))
	q.drain()

	// The rollback reverts one level, refunds its cost, and re-writes the
	// store so it ends where memory ends.
	assert.Equal(t, int32(1), s.LevelOf(7, TypeSpawnerRate))
	assert.Equal(t, int64(10_000_000-200_000), dir.ClanBalance(7))

	repo.mu.Lock()
	saved := repo.rows[7]
	repo.mu.Unlock()
	assert.Equal(t, int32(1), saved.SpawnerRate, "store converged with memory")
}

func TestPurchase_SequentialRequestsSeeBumpedLevel(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(newFakeRepo())

	require.True(t, s.Purchase(7, TypeExpBoost))
	require.True(t, s.Purchase(7, TypeExpBoost))
	assert.Equal(t, int32(2), s.LevelOf(7, TypeExpBoost))
	// 120k + 240k.
	assert.Equal(t, int64(10_000_000-360_000), dir.ClanBalance(7))
}

func TestLoadAll(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	repo.rows[9] = Levels{SpawnerRate: 3, ExpBoost: 1}

	s, _ := newTestStore(repo)
	require.NoError(t, s.LoadAll(context.Background()))

	assert.Equal(t, int32(3), s.LevelOf(9, TypeSpawnerRate))
	assert.Equal(t, int32(1), s.LevelOf(9, TypeExpBoost))
	assert.Equal(t, int32(0), s.LevelOf(9, TypeCropGrowth))
	assert.Equal(t, 15.0, s.BonusPercent(9, TypeSpawnerRate))
}

func TestTypeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "spawner_rate", TypeSpawnerRate.String())
	assert.Equal(t, "extra_shield_hours", TypeExtraShieldHours.String())
	assert.Equal(t, "unknown", Type(99).String())
}
