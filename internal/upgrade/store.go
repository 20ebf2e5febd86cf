// Package upgrade holds per-clan tiered purchases: multipliers bought
// from the clan treasury. A failed persistence write refunds the debit
// instead of leaving money spent with no matching upgrade.
package upgrade

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/clan"
)

// Type identifies one purchasable upgrade track.
type Type int32

// The four upgrade tracks.
const (
	TypeSpawnerRate Type = iota
	TypeCropGrowth
	TypeExpBoost
	TypeExtraShieldHours
)

// String returns the track name for logs.
func (t Type) String() string {
	switch t {
	case TypeSpawnerRate:
		return "spawner_rate"
	case TypeCropGrowth:
		return "crop_growth"
	case TypeExpBoost:
		return "exp_boost"
	case TypeExtraShieldHours:
		return "extra_shield_hours"
	default:
		return "unknown"
	}
}

// Levels holds one clan's level on every track.
type Levels struct {
	SpawnerRate      int32
	CropGrowth       int32
	ExpBoost         int32
	ExtraShieldHours int32
}

// Get returns the level on one track.
func (l Levels) Get(t Type) int32 {
	switch t {
	case TypeSpawnerRate:
		return l.SpawnerRate
	case TypeCropGrowth:
		return l.CropGrowth
	case TypeExpBoost:
		return l.ExpBoost
	case TypeExtraShieldHours:
		return l.ExtraShieldHours
	default:
		return 0
	}
}

func (l *Levels) set(t Type, v int32) {
	switch t {
	case TypeSpawnerRate:
		l.SpawnerRate = v
	case TypeCropGrowth:
		l.CropGrowth = v
	case TypeExpBoost:
		l.ExpBoost = v
	case TypeExtraShieldHours:
		l.ExtraShieldHours = v
	}
}

// TrackConfig is the cost curve of one track:
// cost(level) = BaseCostCents × (level+1).
type TrackConfig struct {
	BaseCostCents int64
	MaxLevel      int32
}

// Config holds all four tracks.
type Config struct {
	SpawnerRate      TrackConfig
	CropGrowth       TrackConfig
	ExpBoost         TrackConfig
	ExtraShieldHours TrackConfig
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpawnerRate:      TrackConfig{BaseCostCents: 100_000, MaxLevel: 5},
		CropGrowth:       TrackConfig{BaseCostCents: 80_000, MaxLevel: 5},
		ExpBoost:         TrackConfig{BaseCostCents: 120_000, MaxLevel: 5},
		ExtraShieldHours: TrackConfig{BaseCostCents: 150_000, MaxLevel: 3},
	}
}

func (c Config) track(t Type) TrackConfig {
	switch t {
	case TypeSpawnerRate:
		return c.SpawnerRate
	case TypeCropGrowth:
		return c.CropGrowth
	case TypeExpBoost:
		return c.ExpBoost
	case TypeExtraShieldHours:
		return c.ExtraShieldHours
	default:
		return TrackConfig{}
	}
}

// Repository is the persistence surface of the store.
type Repository interface {
	LoadAllUpgrades(ctx context.Context) (map[int32]Levels, error)
	SaveUpgrades(ctx context.Context, clanID int32, lv Levels) error
}

// Async schedules background persistence work.
type Async interface {
	Submit(op string, fn func(ctx context.Context) error)
}

// Store holds every clan's upgrade levels.
// Thread-safe: levels protected by mu, which also serializes purchases so
// two concurrent requests never both succeed off a stale level read.
type Store struct {
	mu     sync.Mutex
	levels map[int32]*Levels

	cfg   Config
	repo  Repository
	async Async
	dir   clan.Directory
}

// NewStore creates an empty upgrade store.
func NewStore(cfg Config, repo Repository, async Async, dir clan.Directory) *Store {
	return &Store{
		levels: make(map[int32]*Levels),
		cfg:    cfg,
		repo:   repo,
		async:  async,
		dir:    dir,
	}
}

// LoadAll loads stored levels for every clan. Called once at startup.
func (s *Store) LoadAll(ctx context.Context) error {
	all, err := s.repo.LoadAllUpgrades(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for clanID, lv := range all {
		s.levels[clanID] = &lv
	}
	s.mu.Unlock()
	slog.Info("clan upgrades loaded", "clans", len(all))
	return nil
}

// ensureLocked returns the clan's record, creating a zero-level one on
// first access. Callers hold mu.
func (s *Store) ensureLocked(clanID int32) *Levels {
	lv, ok := s.levels[clanID]
	if !ok {
		lv = &Levels{}
		s.levels[clanID] = lv
	}
	return lv
}

// LevelOf returns a clan's level on one track. Never blocks.
func (s *Store) LevelOf(clanID int32, t Type) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(clanID).Get(t)
}

// BonusPercent returns the multiplier bonus a track grants: 5% per level.
func (s *Store) BonusPercent(clanID int32, t Type) float64 {
	return float64(s.LevelOf(clanID, t)) * 5.0
}

// Cost returns what the next level on a track costs, or 0 at max level.
func (s *Store) Cost(clanID int32, t Type) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.ensureLocked(clanID).Get(t)
	tc := s.cfg.track(t)
	if cur >= tc.MaxLevel {
		return 0
	}
	return tc.BaseCostCents * int64(cur+1)
}

// Purchase buys the next level on a track from the clan treasury.
// Fails without state change at max level or when the debit fails. On
// success the in-memory level bumps immediately; if the background write
// then fails, the level is reverted and the treasury refunded.
func (s *Store) Purchase(clanID int32, t Type) bool {
	s.mu.Lock()
	lv := s.ensureLocked(clanID)
	cur := lv.Get(t)
	tc := s.cfg.track(t)
	if tc.MaxLevel <= 0 || cur >= tc.MaxLevel {
		s.mu.Unlock()
		return false
	}

	cost := tc.BaseCostCents * int64(cur+1)
	if !s.dir.DebitClanBalance(clanID, cost) {
		s.mu.Unlock()
		return false
	}

	lv.set(t, cur+1)
	copied := *lv
	s.mu.Unlock()

	s.async.Submit("upgrade save", func(ctx context.Context) error {
		if err := s.repo.SaveUpgrades(ctx, clanID, copied); err != nil {
			s.rollback(clanID, t, cost)
			return err
		}
		return nil
	})
	slog.Info("upgrade purchased",
		"clan_id", clanID, "type", t, "level", cur+1, "cost_cents", cost)
	return true
}

// rollback undoes a purchase whose persistence failed: the level drops
// back and the money returns. Leaving money spent with no stored upgrade
// would be an economic-integrity bug, unlike a claim write that reconciles
// on reload. The post-revert snapshot is persisted again so the store
// converges with memory even when a later purchase's save already landed
// at the higher level.
func (s *Store) rollback(clanID int32, t Type, cost int64) {
	s.mu.Lock()
	lv := s.ensureLocked(clanID)
	if cur := lv.Get(t); cur > 0 {
		lv.set(t, cur-1)
	}
	copied := *lv
	s.mu.Unlock()

	s.dir.CreditClanBalance(clanID, cost)
	slog.Warn("upgrade purchase rolled back",
		"clan_id", clanID, "type", t, "refund_cents", cost)

	s.async.Submit("upgrade rollback save", func(ctx context.Context) error {
		return s.repo.SaveUpgrades(ctx, clanID, copied)
	})
}
