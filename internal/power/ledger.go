// Package power tracks the per-player power resource that gates how much
// territory a clan can hold. Power regenerates over time (faster for
// clanless players), catches up for offline time on join, and is
// penalized on death.
package power

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/clan"
)

// Snapshot is a player's persisted power state.
type Snapshot struct {
	Power     float64
	MaxPower  float64
	LastRegen time.Time
}

// Config holds power ledger settings.
type Config struct {
	Initial            float64
	Max                float64
	SoloRegenPerMinute float64
	ClanRegenPerMinute float64
	DeathPenalty       float64
	Floor              float64 // may be negative: repeated deaths build power debt
	RegenInterval      time.Duration
	AggregateCacheTTL  time.Duration
	AggregateCacheSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Initial:            10.0,
		Max:                50.0,
		SoloRegenPerMinute: 0.4,
		ClanRegenPerMinute: 0.2,
		DeathPenalty:       4.0,
		Floor:              -10.0,
		RegenInterval:      time.Minute,
		AggregateCacheTTL:  30 * time.Second,
		AggregateCacheSize: 512,
	}
}

// Store is the persistence surface of the ledger.
type Store interface {
	// Load returns nil, nil when the player has never been saved.
	Load(ctx context.Context, playerID int64) (*Snapshot, error)
	Save(ctx context.Context, playerID int64, s Snapshot) error
	SumByClan(ctx context.Context, clanID int32) (float64, error)
}

// Async schedules background persistence work.
type Async interface {
	Submit(op string, fn func(ctx context.Context) error)
}

type cachedAggregate struct {
	sum float64
	at  time.Time
}

// Ledger holds power balances for currently-online players.
// Memory is authoritative between saves; saves happen on quit and death.
// Thread-safe: entries protected by mu.
type Ledger struct {
	mu      sync.RWMutex
	entries map[int64]*Snapshot
	loading map[int64]bool // players whose stored row is still being fetched

	cfg   Config
	store Store
	async Async
	dir   clan.Directory
	cache *lru.Cache

	now func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger(cfg Config, store Store, async Async, dir clan.Directory) *Ledger {
	cache, _ := lru.New(cfg.AggregateCacheSize)
	return &Ledger{
		entries: make(map[int64]*Snapshot),
		loading: make(map[int64]bool),
		cfg:     cfg,
		store:   store,
		async:   async,
		dir:     dir,
		cache:   cache,
		now:     time.Now,
	}
}

// PowerOf returns a player's current power, or the configured initial
// value while the player's row is still loading. Never blocks.
func (l *Ledger) PowerOf(playerID int64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.entries[playerID]; ok {
		return s.Power
	}
	return l.cfg.Initial
}

// MaxPowerOf returns a player's power cap, defaulting while unloaded.
func (l *Ledger) MaxPowerOf(playerID int64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.entries[playerID]; ok {
		return s.MaxPower
	}
	return l.cfg.Max
}

// OnJoin seeds the player with the configured initial values immediately
// and loads the stored power off the gameplay path, applying offline
// regeneration for the time since the last save. Mutations that land
// while the load is in flight (a death right after login) are carried
// onto the loaded value as a delta against the seed, so a penalty is
// never overwritten by the slower load.
func (l *Ledger) OnJoin(playerID int64) {
	seed := Snapshot{Power: l.cfg.Initial, MaxPower: l.cfg.Max, LastRegen: l.now()}
	l.mu.Lock()
	if _, ok := l.entries[playerID]; ok {
		// Already online.
		l.mu.Unlock()
		return
	}
	s := seed
	l.entries[playerID] = &s
	l.loading[playerID] = true
	l.mu.Unlock()

	l.async.Submit("power load", func(ctx context.Context) error {
		stored, err := l.store.Load(ctx, playerID)
		now := l.now()
		if err == nil && stored != nil {
			// Offline catch-up at the rate applicable right now.
			minutes := now.Sub(stored.LastRegen).Minutes()
			if minutes > 0 && stored.Power < stored.MaxPower {
				stored.Power = min(stored.Power+minutes*l.regenRate(playerID), stored.MaxPower)
			}
			stored.LastRegen = now
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.loading[playerID] {
			// Quit before the load finished; the stored row stays
			// authoritative.
			return err
		}
		delete(l.loading, playerID)
		if err != nil || stored == nil {
			return err
		}
		cur := l.entries[playerID]
		delta := cur.Power - seed.Power
		stored.Power = max(min(stored.Power+delta, stored.MaxPower), l.cfg.Floor)
		l.entries[playerID] = stored

		slog.Debug("power loaded", "player_id", playerID, "power", stored.Power)
		return nil
	})
}

// OnQuit snapshots the player's state, removes it from memory, and
// persists the snapshot in the background. The copy is taken before the
// removal so a concurrent regen tick cannot mutate what gets saved.
// A quit while the join load is still in flight skips the save: memory
// only holds the seed then, and the stored row is the better record.
func (l *Ledger) OnQuit(playerID int64) {
	l.mu.Lock()
	s, ok := l.entries[playerID]
	loading := l.loading[playerID]
	var copied Snapshot
	if ok {
		copied = *s
		delete(l.entries, playerID)
	}
	delete(l.loading, playerID)
	l.mu.Unlock()
	if !ok || loading {
		return
	}

	copied.LastRegen = l.now()
	l.async.Submit("power save on quit", func(ctx context.Context) error {
		return l.store.Save(ctx, playerID, copied)
	})
}

// OnDeath applies the death penalty synchronously, floored at the
// configured minimum, and schedules an immediate save: a penalty must not
// be lost to an unclean shutdown.
func (l *Ledger) OnDeath(playerID int64) float64 {
	l.mu.Lock()
	s, ok := l.entries[playerID]
	if !ok {
		s = &Snapshot{Power: l.cfg.Initial, MaxPower: l.cfg.Max, LastRegen: l.now()}
		l.entries[playerID] = s
	}
	s.Power = max(s.Power-l.cfg.DeathPenalty, l.cfg.Floor)
	copied := *s
	l.mu.Unlock()

	l.async.Submit("power save on death", func(ctx context.Context) error {
		return l.store.Save(ctx, playerID, copied)
	})
	slog.Debug("power death penalty", "player_id", playerID, "power", copied.Power)
	return copied.Power
}

// Run drives the regeneration tick until ctx is done.
func (l *Ledger) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.RegenInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.regenTick()
		}
	}
}

// regenTick raises every online player's power toward their cap.
// It only ever increases power; persistence waits for quit/death.
func (l *Ledger) regenTick() {
	amountMinutes := l.cfg.RegenInterval.Minutes()
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for playerID, s := range l.entries {
		if s.Power >= s.MaxPower {
			continue
		}
		s.Power = min(s.Power+l.regenRate(playerID)*amountMinutes, s.MaxPower)
		s.LastRegen = now
	}
}

// regenRate returns the per-minute rate for a player. Clanless players
// regenerate faster, rewarding solo play's higher risk.
func (l *Ledger) regenRate(playerID int64) float64 {
	if _, inClan := l.dir.ClanByMember(playerID); inClan {
		return l.cfg.ClanRegenPerMinute
	}
	return l.cfg.SoloRegenPerMinute
}

// ClanAggregatePower sums stored power across all clan members, offline
// ones included, from the backing store. Results are cached briefly since
// the claim-authorization path calls this on every claim attempt.
func (l *Ledger) ClanAggregatePower(ctx context.Context, clanID int32) (float64, error) {
	if cached, ok := l.cache.Get(clanID); ok {
		if c, ok := cached.(cachedAggregate); ok && l.now().Sub(c.at) < l.cfg.AggregateCacheTTL {
			return c.sum, nil
		}
	}

	sum, err := l.store.SumByClan(ctx, clanID)
	if err != nil {
		return 0, err
	}
	l.cache.Add(clanID, cachedAggregate{sum: sum, at: l.now()})
	return sum, nil
}

// Flush saves every online player synchronously. Shutdown path.
func (l *Ledger) Flush(ctx context.Context) {
	l.mu.RLock()
	copies := make(map[int64]Snapshot, len(l.entries))
	for playerID, s := range l.entries {
		copies[playerID] = *s
	}
	l.mu.RUnlock()

	now := l.now()
	for playerID, s := range copies {
		s.LastRegen = now
		if err := l.store.Save(ctx, playerID, s); err != nil {
			slog.Error("power flush failed", "player_id", playerID, "err", err)
		}
	}
	if len(copies) > 0 {
		slog.Info("power ledger flushed", "players", len(copies))
	}
}
