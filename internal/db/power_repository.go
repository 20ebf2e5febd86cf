package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/power"
)

// PowerRepository handles player power persistence to PostgreSQL.
type PowerRepository struct {
	pool *pgxpool.Pool
}

// NewPowerRepository creates a new power repository.
func NewPowerRepository(pool *pgxpool.Pool) *PowerRepository {
	return &PowerRepository{pool: pool}
}

// Load returns a player's stored power state.
// Returns nil, nil if the player has never been saved.
func (r *PowerRepository) Load(ctx context.Context, playerID int64) (*power.Snapshot, error) {
	var s power.Snapshot
	err := r.pool.QueryRow(ctx,
		`SELECT power, max_power, last_power_regen
		 FROM player_power WHERE player_id = $1`, playerID,
	).Scan(&s.Power, &s.MaxPower, &s.LastRegen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query power for player %d: %w", playerID, err)
	}
	return &s, nil
}

// Save upserts a player's power state.
func (r *PowerRepository) Save(ctx context.Context, playerID int64, s power.Snapshot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO player_power (player_id, power, max_power, last_power_regen)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (player_id) DO UPDATE SET
		  power=$2, max_power=$3, last_power_regen=$4`,
		playerID, s.Power, s.MaxPower, s.LastRegen,
	)
	if err != nil {
		return fmt.Errorf("save power for player %d: %w", playerID, err)
	}
	return nil
}

// SumByClan sums stored power across every member of a clan, including
// offline ones. Membership comes from the clan system's clan_members table.
func (r *PowerRepository) SumByClan(ctx context.Context, clanID int32) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(p.power), 0)
		 FROM player_power p
		 JOIN clan_members m ON m.player_id = p.player_id
		 WHERE m.clan_id = $1`, clanID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum power for clan %d: %w", clanID, err)
	}
	return sum, nil
}
