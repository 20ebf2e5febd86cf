package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/upgrade"
)

// ClanStateRepository handles per-clan shield and upgrade persistence.
type ClanStateRepository struct {
	pool *pgxpool.Pool
}

// NewClanStateRepository creates a new clan state repository.
func NewClanStateRepository(pool *pgxpool.Pool) *ClanStateRepository {
	return &ClanStateRepository{pool: pool}
}

// LoadActiveShields returns clan_id → shield expiry for every clan whose
// shield has not yet run out.
func (r *ClanStateRepository) LoadActiveShields(ctx context.Context) (map[int32]time.Time, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT clan_id, shield_expires_at FROM clan_state
		 WHERE shield_expires_at IS NOT NULL AND shield_expires_at > now()`)
	if err != nil {
		return nil, fmt.Errorf("query clan_state shields: %w", err)
	}
	defer rows.Close()

	result := make(map[int32]time.Time)
	for rows.Next() {
		var clanID int32
		var expiresAt time.Time
		if err := rows.Scan(&clanID, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan clan_state: %w", err)
		}
		result[clanID] = expiresAt
	}
	return result, rows.Err()
}

// SaveShieldExpiry upserts a clan's shield expiry.
// A zero expiresAt stores NULL (no shield).
func (r *ClanStateRepository) SaveShieldExpiry(ctx context.Context, clanID int32, expiresAt time.Time) error {
	var value *time.Time
	if !expiresAt.IsZero() {
		value = &expiresAt
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO clan_state (clan_id, shield_expires_at)
		 VALUES ($1,$2)
		 ON CONFLICT (clan_id) DO UPDATE SET shield_expires_at=$2`,
		clanID, value,
	)
	if err != nil {
		return fmt.Errorf("save shield expiry for clan %d: %w", clanID, err)
	}
	return nil
}

// LoadAllUpgrades returns upgrade levels for every clan with a row.
// Clans without a row are implicitly at level zero everywhere.
func (r *ClanStateRepository) LoadAllUpgrades(ctx context.Context) (map[int32]upgrade.Levels, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT clan_id, spawner_rate, crop_growth, exp_boost, extra_shield_hours
		 FROM clan_upgrades`)
	if err != nil {
		return nil, fmt.Errorf("query clan_upgrades: %w", err)
	}
	defer rows.Close()

	result := make(map[int32]upgrade.Levels)
	for rows.Next() {
		var clanID int32
		var lv upgrade.Levels
		if err := rows.Scan(&clanID, &lv.SpawnerRate, &lv.CropGrowth, &lv.ExpBoost, &lv.ExtraShieldHours); err != nil {
			return nil, fmt.Errorf("scan clan_upgrades: %w", err)
		}
		result[clanID] = lv
	}
	return result, rows.Err()
}

// SaveUpgrades upserts a clan's upgrade levels.
func (r *ClanStateRepository) SaveUpgrades(ctx context.Context, clanID int32, lv upgrade.Levels) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO clan_upgrades (clan_id, spawner_rate, crop_growth, exp_boost, extra_shield_hours)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (clan_id) DO UPDATE SET
		  spawner_rate=$2, crop_growth=$3, exp_boost=$4, extra_shield_hours=$5`,
		clanID, lv.SpawnerRate, lv.CropGrowth, lv.ExpBoost, lv.ExtraShieldHours,
	)
	if err != nil {
		return fmt.Errorf("save upgrades for clan %d: %w", clanID, err)
	}
	return nil
}
