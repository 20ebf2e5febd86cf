// Package notify holds the optional outbound hooks of the territory
// subsystem. A map overlay and a chat relay may be attached; when they are
// not, the no-op implementations stand in and the core never checks for
// their presence.
package notify

import (
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/model"
)

// Wilderness is the clan ID reported for an unclaimed chunk.
const Wilderness int32 = 0

// MapOverlay receives claim transitions for an external map visualization.
type MapOverlay interface {
	// ClaimChanged fires after a chunk changes owner.
	// clanID is Wilderness when the chunk was released.
	ClaimChanged(key model.ChunkKey, clanID int32)
}

// ChatRelay receives shield-critical transitions for an external chat bridge.
type ChatRelay interface {
	// ShieldExpiring fires when a clan's shield drops below the critical
	// threshold.
	ShieldExpiring(clanID int32, remaining time.Duration)
}

// NopMapOverlay discards claim transitions.
type NopMapOverlay struct{}

func (NopMapOverlay) ClaimChanged(model.ChunkKey, int32) {}

// NopChatRelay discards shield transitions.
type NopChatRelay struct{}

func (NopChatRelay) ShieldExpiring(int32, time.Duration) {}

// OverlayOrNop returns o, or the no-op overlay when o is nil.
func OverlayOrNop(o MapOverlay) MapOverlay {
	if o == nil {
		return NopMapOverlay{}
	}
	return o
}

// RelayOrNop returns r, or the no-op relay when r is nil.
func RelayOrNop(r ChatRelay) ChatRelay {
	if r == nil {
		return NopChatRelay{}
	}
	return r
}
