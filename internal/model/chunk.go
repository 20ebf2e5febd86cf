package model

import "fmt"

// ChunkShift converts block coordinates to chunk coordinates (16×16 columns).
const ChunkShift = 4

// ChunkKey identifies one 16×16 column of a world, independent of height.
// Comparable by value; used as a map key across the territory subsystem.
type ChunkKey struct {
	World string
	X     int32
	Z     int32
}

// ChunkAt returns the ChunkKey containing the given block coordinates.
// Arithmetic shift keeps negative coordinates in the correct chunk.
func ChunkAt(world string, blockX, blockZ int32) ChunkKey {
	return ChunkKey{
		World: world,
		X:     blockX >> ChunkShift,
		Z:     blockZ >> ChunkShift,
	}
}

// String returns "world:x,z" for logs.
func (k ChunkKey) String() string {
	return fmt.Sprintf("%s:%d,%d", k.World, k.X, k.Z)
}
