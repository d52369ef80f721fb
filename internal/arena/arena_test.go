package arena

import "testing"

func TestCopyBytesIndependentBackingArray(t *testing.T) {
	a := New(16)
	src := []byte{1, 2, 3}
	dst := a.CopyBytes(src)
	src[0] = 0xff
	if dst[0] == 0xff {
		t.Fatalf("arena copy aliases caller's slice")
	}
}

func TestAllocAcrossBlocks(t *testing.T) {
	a := New(8)
	for i := 0; i < 100; i++ {
		a.AllocBytes(5)
	}
	stats := a.Stats()
	if stats.Blocks < 2 {
		t.Fatalf("expected multiple blocks, got %d", stats.Blocks)
	}
	if stats.Allocs != 100 {
		t.Fatalf("expected 100 allocs, got %d", stats.Allocs)
	}
}

func TestRelease(t *testing.T) {
	a := New(16)
	a.AllocBytes(10)
	a.Release()
	if stats := a.Stats(); stats.Blocks != 0 || stats.Allocated != 0 {
		t.Fatalf("expected empty stats after release, got %+v", stats)
	}
}
