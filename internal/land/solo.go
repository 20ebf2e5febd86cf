package land

import (
	"context"
	"log/slog"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/model"
)

// Solo-build marks remember where a clanless player built in unclaimed
// land, so that joining a clan can transfer those chunks in one pass.
// Memory-only: a restart forgets marks for still-unclaimed chunks.

// TrackSoloBuild records that playerID built in the chunk, only while the
// chunk is unclaimed. A later builder in the same chunk takes the mark over.
func (idx *Index) TrackSoloBuild(key model.ChunkKey, playerID int64) {
	s := idx.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, claimed := s.owners[key]; claimed {
		return
	}
	idx.soloMu.Lock()
	idx.solo[key] = playerID
	idx.soloMu.Unlock()
}

// clearSoloMark drops the mark once a chunk stops being wilderness.
func (idx *Index) clearSoloMark(key model.ChunkKey) {
	idx.soloMu.Lock()
	delete(idx.solo, key)
	idx.soloMu.Unlock()
}

// SoloMarkCount returns how many marks a player currently holds.
func (idx *Index) SoloMarkCount(playerID int64) int {
	idx.soloMu.Lock()
	defer idx.soloMu.Unlock()
	n := 0
	for _, p := range idx.solo {
		if p == playerID {
			n++
		}
	}
	return n
}

// AutoClaimSoloBuilds claims the player's solo-built chunks for their new
// clan. Chunks grabbed by someone else in the meantime count as skipped and
// lose their mark; successful claims stop at maxChunks when maxChunks > 0.
// Successful transfers persist as one batch insert.
func (idx *Index) AutoClaimSoloBuilds(playerID int64, clanID int32, maxChunks int) (claimed, skipped int) {
	idx.soloMu.Lock()
	keys := make([]model.ChunkKey, 0, 8)
	for key, p := range idx.solo {
		if p == playerID {
			keys = append(keys, key)
		}
	}
	idx.soloMu.Unlock()

	transferred := make(map[model.ChunkKey]int32, len(keys))
	for _, key := range keys {
		if maxChunks > 0 && claimed >= maxChunks {
			break
		}
		if idx.tryClaim(key, clanID) {
			transferred[key] = clanID
			claimed++
		} else {
			// Claimed by someone else since the mark was made.
			idx.clearSoloMark(key)
			skipped++
		}
	}

	if len(transferred) > 0 {
		idx.async.Submit("solo auto-claim batch", func(ctx context.Context) error {
			return idx.store.InsertBatch(ctx, transferred)
		})
		for key := range transferred {
			idx.overlay.ClaimChanged(key, clanID)
		}
		slog.Info("solo builds transferred to clan",
			"player_id", playerID, "clan_id", clanID,
			"claimed", claimed, "skipped", skipped)
	}
	return claimed, skipped
}
