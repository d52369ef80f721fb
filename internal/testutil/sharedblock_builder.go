package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nmxmxh/fossilize/internal/sharedblock"
)

// SharedBlockBuilder assembles a temporary, initialized
// sharedblock.Block for orchestrator/replayclient tests.
type SharedBlockBuilder struct {
	t        *testing.T
	provider *sharedblock.Provider
	block    *sharedblock.Block
}

// NewSharedBlockBuilder creates a backing file of the given ring size
// and initializes a SharedControlBlock over it.
func NewSharedBlockBuilder(t *testing.T, ringSize uint32) *SharedBlockBuilder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "control.block")
	size := uint32(sharedblock.HeaderSize) + ringSize*64
	provider, err := sharedblock.Open(sharedblock.Options{Path: path, Size: size, Create: true})
	if err != nil {
		t.Fatalf("testutil: open shared block: %v", err)
	}
	t.Cleanup(func() { provider.Close() })

	block, err := sharedblock.Init(provider, ringSize)
	if err != nil {
		t.Fatalf("testutil: init shared block: %v", err)
	}
	return &SharedBlockBuilder{t: t, provider: provider, block: block}
}

// Block returns the initialized SharedControlBlock.
func (s *SharedBlockBuilder) Block() *sharedblock.Block { return s.block }

// Provider returns the backing memory-mapped region.
func (s *SharedBlockBuilder) Provider() *sharedblock.Provider { return s.provider }
