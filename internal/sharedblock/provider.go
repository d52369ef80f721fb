// Package sharedblock implements the SharedControlBlock: a fixed-layout,
// cross-process structure at the head of a shared-memory region used by
// the orchestrator's master and worker subprocesses for aggregated
// counters, progress signals, and a message ring (spec §3, §6).
package sharedblock

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nmxmxh/fossilize/internal/errutil"
)

// Provider is a memory-mapped region shared across process boundaries: a
// file-backed mmap; Block layers the atomic 32-bit load/store/add
// accessors over its bytes (spec §9
// "Cross-process shared state. Use a shared-memory region with a fixed
// C-ABI-compatible layout, plain 32-bit atomics").
type Provider struct {
	path string
	file *os.File
	data []byte
	size uint32
}

// Options configures Open.
type Options struct {
	Path   string
	Size   uint32
	Create bool
}

// Open opens or creates a memory-mapped shared region backed by a file,
// so unrelated processes can map the same bytes by path (spec §4.7
// "allocates a shared-memory SharedControlBlock").
func Open(opts Options) (*Provider, error) {
	if opts.Path == "" {
		return nil, &errutil.IoError{Op: "open shared block", Cause: errutil.Wrap(nil, "path required")}
	}
	flags := os.O_RDWR
	if opts.Create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(opts.Path, flags, 0o600)
	if err != nil {
		return nil, &errutil.IoError{Op: "open shared block file", Cause: err}
	}
	if opts.Create {
		if opts.Size == 0 {
			_ = f.Close()
			return nil, &errutil.IoError{Op: "open shared block", Cause: errutil.Wrap(nil, "size required when creating")}
		}
		if err := f.Truncate(int64(opts.Size)); err != nil {
			_ = f.Close()
			return nil, &errutil.IoError{Op: "truncate shared block file", Cause: err}
		}
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &errutil.IoError{Op: "stat shared block file", Cause: err}
	}
	size := uint32(info.Size())
	if size == 0 {
		_ = f.Close()
		return nil, &errutil.IoError{Op: "open shared block", Cause: errutil.Wrap(nil, "zero-size region")}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, &errutil.IoError{Op: "mmap shared block", Cause: err}
	}

	return &Provider{path: opts.Path, file: f, data: data, size: size}, nil
}

// Size returns the mapped region's size in bytes.
func (p *Provider) Size() uint32 { return p.size }

// Path returns the filesystem path backing the region, used by workers
// to map the same region the master created (spec §4.7 "Each worker
// opens the archive read-only, maps the same SharedControlBlock").
func (p *Provider) Path() string { return p.path }

// Bytes exposes the raw mapped region. Callers are expected to go
// through Block for structured access; this is used by the ring buffer
// to compute byte offsets directly.
func (p *Provider) Bytes() []byte { return p.data }

// Close unmaps the region and releases the backing file.
func (p *Provider) Close() error {
	var err error
	if p.data != nil {
		if unmapErr := unix.Munmap(p.data); unmapErr != nil {
			err = unmapErr
		}
		p.data = nil
	}
	if p.file != nil {
		if closeErr := p.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		p.file = nil
	}
	if err != nil {
		return &errutil.IoError{Op: "close shared block", Cause: err}
	}
	return nil
}
