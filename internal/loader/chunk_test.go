package loader

import "testing"

func TestChunkSlicePartitionsEvenly(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	chunks := ChunkSlice(items, 2)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != 2 || len(chunks[2]) != 1 {
		t.Errorf("unexpected chunk sizes: %v", chunks)
	}
}

func TestChunkSliceEmptyInputYieldsNoChunks(t *testing.T) {
	if chunks := ChunkSlice([]int{}, 10); chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
}
