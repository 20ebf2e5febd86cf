package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/model"
)

// ClaimRepository handles territory claim persistence to PostgreSQL.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

// NewClaimRepository creates a new claim repository.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// LoadAll loads every claim from the database.
func (r *ClaimRepository) LoadAll(ctx context.Context) (map[model.ChunkKey]int32, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT world, x, z, clan_id FROM territory_claims`)
	if err != nil {
		return nil, fmt.Errorf("query territory_claims: %w", err)
	}
	defer rows.Close()

	result := make(map[model.ChunkKey]int32)
	for rows.Next() {
		var key model.ChunkKey
		var clanID int32
		if err := rows.Scan(&key.World, &key.X, &key.Z, &clanID); err != nil {
			return nil, fmt.Errorf("scan territory_claims: %w", err)
		}
		result[key] = clanID
	}
	return result, rows.Err()
}

// Insert stores one claim. The primary key rejects double ownership; the
// in-memory index has already decided the winner, so conflicts are upserts.
func (r *ClaimRepository) Insert(ctx context.Context, key model.ChunkKey, clanID int32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO territory_claims (world, x, z, clan_id)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (world, x, z) DO UPDATE SET clan_id=$4`,
		key.World, key.X, key.Z, clanID,
	)
	if err != nil {
		return fmt.Errorf("insert claim %s: %w", key, err)
	}
	return nil
}

// Delete removes one claim.
func (r *ClaimRepository) Delete(ctx context.Context, key model.ChunkKey) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM territory_claims WHERE world = $1 AND x = $2 AND z = $3`,
		key.World, key.X, key.Z,
	)
	if err != nil {
		return fmt.Errorf("delete claim %s: %w", key, err)
	}
	return nil
}

// DeleteAllForClan removes every claim owned by a clan.
func (r *ClaimRepository) DeleteAllForClan(ctx context.Context, clanID int32) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM territory_claims WHERE clan_id = $1`, clanID)
	if err != nil {
		return fmt.Errorf("delete claims for clan %d: %w", clanID, err)
	}
	return nil
}

// InsertBatch stores many claims in one round trip (solo auto-claim).
func (r *ClaimRepository) InsertBatch(ctx context.Context, claims map[model.ChunkKey]int32) error {
	if len(claims) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for key, clanID := range claims {
		batch.Queue(
			`INSERT INTO territory_claims (world, x, z, clan_id)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (world, x, z) DO UPDATE SET clan_id=$4`,
			key.World, key.X, key.Z, clanID,
		)
	}
	br := r.pool.SendBatch(ctx, batch)
	for range claims {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck
			return fmt.Errorf("insert claim batch: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close claim batch: %w", err)
	}
	return nil
}
