// Package shield tracks per-clan raid protection as an absolute expiry
// that can be purchased in hours. During the daily quiet window the
// countdown is frozen: the shield stays active but consumes no time, and
// the expiry is re-based when the window ends so the clan receives the
// full purchased duration.
package shield

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/clan"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/notify"
)

// Config holds shield clock settings.
type Config struct {
	CostPerHourCents int64
	// Quiet window [start, end) in server-local hours. Equal values
	// disable the window.
	QuietStartHour int
	QuietEndHour   int
	// Remaining duration at which the expiring notification fires.
	CriticalRemaining time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CostPerHourCents:  50_000,
		QuietStartHour:    0,
		QuietEndHour:      6,
		CriticalRemaining: 30 * time.Minute,
	}
}

// Store is the persistence surface of the clock.
type Store interface {
	LoadActiveShields(ctx context.Context) (map[int32]time.Time, error)
	// SaveShieldExpiry with a zero time clears the stored expiry.
	SaveShieldExpiry(ctx context.Context, clanID int32, expiresAt time.Time) error
}

// Async schedules background persistence work.
type Async interface {
	Submit(op string, fn func(ctx context.Context) error)
}

type state struct {
	expiresAt       time.Time
	frozen          bool
	frozenRemaining time.Duration
	warned          bool
}

// Clock is the raid-protection timer for all clans.
// Thread-safe: states protected by mu, which also serializes purchases so
// two concurrent extensions never compute from a stale base.
type Clock struct {
	mu     sync.Mutex
	states map[int32]*state

	cfg   Config
	store Store
	async Async
	dir   clan.Directory
	relay notify.ChatRelay

	now func() time.Time
}

// NewClock creates an empty shield clock. relay may be nil.
func NewClock(cfg Config, store Store, async Async, dir clan.Directory, relay notify.ChatRelay) *Clock {
	return &Clock{
		states: make(map[int32]*state),
		cfg:    cfg,
		store:  store,
		async:  async,
		dir:    dir,
		relay:  notify.RelayOrNop(relay),
		now:    time.Now,
	}
}

// LoadAll loads every non-expired shield. Called once at startup.
func (c *Clock) LoadAll(ctx context.Context) error {
	shields, err := c.store.LoadActiveShields(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for clanID, expiresAt := range shields {
		c.states[clanID] = &state{expiresAt: expiresAt}
	}
	c.mu.Unlock()
	slog.Info("clan shields loaded", "active", len(shields))
	return nil
}

// IsActive reports whether a clan's shield is up. The quiet window never
// changes the answer, only whether time is being consumed.
func (c *Clock) IsActive(clanID int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[clanID]
	if !ok {
		return false
	}
	now := c.now()
	c.syncLocked(clanID, s, now)
	if s.frozen {
		return s.frozenRemaining > 0
	}
	return s.expiresAt.After(now)
}

// ActivateShield buys hours of protection from the clan treasury.
// Extensions are additive onto the current expiry (or the frozen
// remainder inside the quiet window). Fails without any state change when
// the treasury debit fails.
func (c *Clock) ActivateShield(clanID int32, hours int) bool {
	if hours <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cost := int64(hours) * c.cfg.CostPerHourCents
	if !c.dir.DebitClanBalance(clanID, cost) {
		return false
	}

	now := c.now()
	dur := time.Duration(hours) * time.Hour
	s, ok := c.states[clanID]
	if !ok {
		s = &state{}
		c.states[clanID] = s
	} else {
		c.syncLocked(clanID, s, now)
	}

	if c.inQuietWindow(now) {
		// Bought during the freeze: the hours land on the frozen
		// remainder and start counting when the window ends.
		if !s.frozen {
			s.frozen = true
			s.frozenRemaining = 0
		}
		s.frozenRemaining += dur
		// Checkpoint so a restart mid-window keeps most of the purchase.
		s.expiresAt = now.Add(s.frozenRemaining)
	} else {
		base := now
		if s.expiresAt.After(now) {
			base = s.expiresAt
		}
		s.expiresAt = base.Add(dur)
	}
	s.warned = false

	expiresAt := s.expiresAt
	c.async.Submit("shield save", func(ctx context.Context) error {
		return c.store.SaveShieldExpiry(ctx, clanID, expiresAt)
	})
	slog.Info("shield activated", "clan_id", clanID, "hours", hours, "cost_cents", cost)
	return true
}

// RemainingMinutes returns how much live protection is left. Inside the
// quiet window this is the value frozen at the moment the window was
// entered, stable across calls.
func (c *Clock) RemainingMinutes(clanID int32) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[clanID]
	if !ok {
		return 0
	}
	now := c.now()
	c.syncLocked(clanID, s, now)

	var rem time.Duration
	if s.frozen {
		rem = s.frozenRemaining
	} else {
		rem = s.expiresAt.Sub(now)
	}
	if rem <= 0 {
		c.expireLocked(clanID)
		return 0
	}
	if rem <= c.cfg.CriticalRemaining && !s.warned {
		s.warned = true
		c.relay.ShieldExpiring(clanID, rem)
	}
	return int64(rem / time.Minute)
}

// Run re-bases frozen shields shortly after the quiet window ends, even
// when nobody is querying them. Blocks until ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.syncAll()
		}
	}
}

func (c *Clock) syncAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for clanID, s := range c.states {
		c.syncLocked(clanID, s, now)
		if !s.frozen && !s.expiresAt.After(now) {
			c.expireLocked(clanID)
		}
	}
}

// syncLocked moves a state across quiet-window boundaries: entering the
// window freezes the remainder as of the window start; leaving it re-bases
// the expiry to now + frozen remainder and persists, so the total live
// duration is preserved to the minute.
func (c *Clock) syncLocked(clanID int32, s *state, now time.Time) {
	if c.inQuietWindow(now) {
		if !s.frozen {
			s.frozen = true
			// Remainder as of the moment the window was entered; a
			// shield that ran out before the window stays expired.
			s.frozenRemaining = max(s.expiresAt.Sub(c.quietStart(now)), 0)
		}
		return
	}
	if s.frozen {
		s.frozen = false
		if s.frozenRemaining > 0 {
			s.expiresAt = now.Add(s.frozenRemaining)
			expiresAt := s.expiresAt
			c.async.Submit("shield re-base", func(ctx context.Context) error {
				return c.store.SaveShieldExpiry(ctx, clanID, expiresAt)
			})
			slog.Debug("shield re-based after quiet window",
				"clan_id", clanID, "expires_at", expiresAt)
		}
		s.frozenRemaining = 0
	}
}

// expireLocked drops an expired shield and clears the stored expiry.
func (c *Clock) expireLocked(clanID int32) {
	delete(c.states, clanID)
	c.async.Submit("shield clear", func(ctx context.Context) error {
		return c.store.SaveShieldExpiry(ctx, clanID, time.Time{})
	})
	slog.Debug("shield expired", "clan_id", clanID)
}

// inQuietWindow reports whether t falls inside the configured window.
// Server-local wall clock, no timezone handling.
func (c *Clock) inQuietWindow(t time.Time) bool {
	start, end := c.cfg.QuietStartHour, c.cfg.QuietEndHour
	if start == end {
		return false
	}
	h := t.Hour()
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

// quietStart returns the moment the current quiet window was entered.
func (c *Clock) quietStart(now time.Time) time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(),
		c.cfg.QuietStartHour, 0, 0, 0, now.Location())
	if start.After(now) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}
