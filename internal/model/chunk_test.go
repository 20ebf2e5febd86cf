package model

import "testing"

func TestChunkAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		blockX, blockZ int32
		wantX, wantZ   int32
	}{
		{0, 0, 0, 0},
		{15, 15, 0, 0},
		{16, 16, 1, 1},
		{-1, -1, -1, -1},
		{-16, -16, -1, -1},
		{-17, -17, -2, -2},
		{100, -100, 6, -7},
	}

	for _, tt := range tests {
		k := ChunkAt("world", tt.blockX, tt.blockZ)
		if k.X != tt.wantX || k.Z != tt.wantZ {
			t.Errorf("ChunkAt(%d, %d) = (%d, %d); want (%d, %d)",
				tt.blockX, tt.blockZ, k.X, k.Z, tt.wantX, tt.wantZ)
		}
	}
}

func TestChunkKeyEquality(t *testing.T) {
	t.Parallel()

	a := ChunkKey{World: "world", X: 5, Z: -3}
	b := ChunkAt("world", 80, -48)
	if a != b {
		t.Errorf("ChunkKey{world,5,-3} != ChunkAt(world, 80, -48) = %v", b)
	}

	other := ChunkKey{World: "world_nether", X: 5, Z: -3}
	if a == other {
		t.Error("keys in different worlds compare equal")
	}
}
