// Package land owns the territory claim index: the authoritative answer
// to "which clan owns this chunk". Reads are in-memory and never block;
// writes update memory synchronously and the database asynchronously.
package land

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/model"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/notify"
)

// shardCount splits the ownership map so claims on independent chunks
// never contend on one lock. Power of two.
const shardCount = 32

// Config holds claim index settings.
type Config struct {
	// Power a clan must hold per claimed chunk. 0 disables the power gate.
	PowerPerChunk float64
	// Max chunks one solo auto-claim pass may transfer (0 = unlimited).
	SoloAutoClaimMax int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PowerPerChunk:    10.0,
		SoloAutoClaimMax: 16,
	}
}

// Store is the persistence surface the index writes through.
type Store interface {
	LoadAll(ctx context.Context) (map[model.ChunkKey]int32, error)
	Insert(ctx context.Context, key model.ChunkKey, clanID int32) error
	Delete(ctx context.Context, key model.ChunkKey) error
	DeleteAllForClan(ctx context.Context, clanID int32) error
	InsertBatch(ctx context.Context, claims map[model.ChunkKey]int32) error
}

// Async schedules background persistence work.
type Async interface {
	Submit(op string, fn func(ctx context.Context) error)
}

// PowerSource answers clan aggregate power queries for the claim gate.
type PowerSource interface {
	ClanAggregatePower(ctx context.Context, clanID int32) (float64, error)
}

type shard struct {
	mu     sync.RWMutex
	owners map[model.ChunkKey]int32
}

// Index is the concurrent claim index.
//
// Each chunk lives in one shard; a claim/unclaim holds only that shard's
// lock plus the counts lock (always in that order), so mutations on
// independent chunks proceed in parallel while two racing claims on the
// same chunk serialize and exactly one wins.
type Index struct {
	shards [shardCount]shard

	countMu sync.RWMutex
	counts  map[int32]int32 // clanID → owned chunks

	soloMu sync.Mutex
	solo   map[model.ChunkKey]int64 // unclaimed chunk → solo builder

	cfg     Config
	store   Store
	async   Async
	power   PowerSource
	overlay notify.MapOverlay
}

// NewIndex creates an empty claim index. power and overlay may be nil.
func NewIndex(cfg Config, store Store, async Async, power PowerSource, overlay notify.MapOverlay) *Index {
	idx := &Index{
		counts:  make(map[int32]int32),
		solo:    make(map[model.ChunkKey]int64),
		cfg:     cfg,
		store:   store,
		async:   async,
		power:   power,
		overlay: notify.OverlayOrNop(overlay),
	}
	for i := range idx.shards {
		idx.shards[i].owners = make(map[model.ChunkKey]int32)
	}
	return idx
}

// LoadAll replaces the in-memory state with the stored claims.
// Called once at startup, before the index is shared.
func (idx *Index) LoadAll(ctx context.Context) error {
	claims, err := idx.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	for key, clanID := range claims {
		s := idx.shard(key)
		s.owners[key] = clanID
		idx.counts[clanID]++
	}
	slog.Info("territory claims loaded", "chunks", len(claims), "clans", len(idx.counts))
	return nil
}

func (idx *Index) shard(key model.ChunkKey) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.World)) //nolint:errcheck
	h.Write([]byte{
		byte(key.X), byte(key.X >> 8), byte(key.X >> 16), byte(key.X >> 24),
		byte(key.Z), byte(key.Z >> 8), byte(key.Z >> 16), byte(key.Z >> 24),
	}) //nolint:errcheck
	return &idx.shards[h.Sum32()&(shardCount-1)]
}

// OwnerOf returns the owning clan of a chunk, or ok=false for wilderness.
// Pure in-memory read, safe under any number of concurrent callers.
func (idx *Index) OwnerOf(key model.ChunkKey) (int32, bool) {
	s := idx.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	clanID, ok := s.owners[key]
	return clanID, ok
}

// OwnerAt is OwnerOf for block coordinates.
func (idx *Index) OwnerAt(world string, blockX, blockZ int32) (int32, bool) {
	return idx.OwnerOf(model.ChunkAt(world, blockX, blockZ))
}

// Claim assigns an unclaimed chunk to a clan. Returns false if the chunk
// is already claimed by anyone, including clanID itself.
//
// Memory and the claim counter update synchronously; the database insert
// is fire-and-forget.
func (idx *Index) Claim(key model.ChunkKey, clanID int32) bool {
	if !idx.tryClaim(key, clanID) {
		return false
	}
	idx.async.Submit("claim insert", func(ctx context.Context) error {
		return idx.store.Insert(ctx, key, clanID)
	})
	idx.overlay.ClaimChanged(key, clanID)
	slog.Debug("chunk claimed", "chunk", key, "clan_id", clanID)
	return true
}

// tryClaim applies the in-memory half of a claim.
func (idx *Index) tryClaim(key model.ChunkKey, clanID int32) bool {
	if clanID == notify.Wilderness {
		return false
	}
	s := idx.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.owners[key]; taken {
		return false
	}
	s.owners[key] = clanID

	idx.countMu.Lock()
	idx.counts[clanID]++
	idx.countMu.Unlock()

	idx.clearSoloMark(key)
	return true
}

// Unclaim releases a chunk. Returns false if it was not claimed.
func (idx *Index) Unclaim(key model.ChunkKey) bool {
	s := idx.shard(key)
	s.mu.Lock()
	clanID, ok := s.owners[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.owners, key)

	idx.countMu.Lock()
	if idx.counts[clanID]--; idx.counts[clanID] <= 0 {
		delete(idx.counts, clanID)
	}
	idx.countMu.Unlock()
	s.mu.Unlock()

	idx.async.Submit("claim delete", func(ctx context.Context) error {
		return idx.store.Delete(ctx, key)
	})
	idx.overlay.ClaimChanged(key, notify.Wilderness)
	slog.Debug("chunk unclaimed", "chunk", key, "clan_id", clanID)
	return true
}

// UnclaimAll releases every chunk a clan owns and issues one bulk delete.
func (idx *Index) UnclaimAll(clanID int32) {
	var released []model.ChunkKey
	for i := range idx.shards {
		s := &idx.shards[i]
		s.mu.Lock()
		for key, owner := range s.owners {
			if owner == clanID {
				delete(s.owners, key)
				released = append(released, key)
			}
		}
		s.mu.Unlock()
	}

	if len(released) == 0 {
		return
	}

	// Subtract only what this pass released: a claim racing in on an
	// already-scanned shard keeps both its chunk and its count.
	idx.countMu.Lock()
	if idx.counts[clanID] -= int32(len(released)); idx.counts[clanID] <= 0 {
		delete(idx.counts, clanID)
	}
	idx.countMu.Unlock()
	idx.async.Submit("claim delete all", func(ctx context.Context) error {
		return idx.store.DeleteAllForClan(ctx, clanID)
	})
	for _, key := range released {
		idx.overlay.ClaimChanged(key, notify.Wilderness)
	}
	slog.Info("clan territory released", "clan_id", clanID, "chunks", len(released))
}

// ClaimCount returns how many chunks a clan owns. O(1).
func (idx *Index) ClaimCount(clanID int32) int32 {
	idx.countMu.RLock()
	defer idx.countMu.RUnlock()
	return idx.counts[clanID]
}

// CanClaim reports whether a clan's aggregate power covers one more chunk.
// When the power source is unavailable the gate fails open: a store outage
// degrades to normal in-memory play, it never blocks actions.
func (idx *Index) CanClaim(ctx context.Context, clanID int32) bool {
	if idx.power == nil || idx.cfg.PowerPerChunk <= 0 {
		return true
	}
	agg, err := idx.power.ClanAggregatePower(ctx, clanID)
	if err != nil {
		slog.Warn("clan power unavailable, allowing claim", "clan_id", clanID, "err", err)
		return true
	}
	return float64(idx.ClaimCount(clanID)+1)*idx.cfg.PowerPerChunk <= agg
}
