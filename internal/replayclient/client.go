// Package replayclient implements C8: a thin façade that creates the
// SharedControlBlock, spawns the orchestrator master as a subprocess,
// and exposes polling/wait/kill to an embedder (spec §4.8).
package replayclient

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
	"github.com/nmxmxh/fossilize/internal/sharedblock"
)

// Status is the coarse outcome of a poll (spec §4.8 "poll_progress").
type Status int

const (
	StatusRunning Status = iota
	StatusComplete
	StatusResultNotReady
	StatusError
)

// Progress snapshots every SharedControlBlock counter a caller might
// want without requiring them to know the block's layout.
type Progress struct {
	Successes, Skips, Caches, Parses, Failures map[model.Tag]uint32
	ModulesTotal, ModulesCompleted              uint32
	ModulesBanned, ModulesValidationFailed      uint32
	Started, Complete                           bool
}

// Config configures a Client.
type Config struct {
	MasterBinary    string
	ArchivePath     string
	SharedBlockPath string
	WorkerCount     int
	RingSize        uint32
	Log             *logging.Logger
}

// Client is the embedder-facing façade over one replay run (spec §4.8).
type Client struct {
	cfg      Config
	provider *sharedblock.Provider
	block    *sharedblock.Block
	cmd      *exec.Cmd
	log      *logging.Logger
}

// Start allocates the SharedControlBlock and spawns the master
// subprocess (spec §4.8 "creates the SharedControlBlock, spawns the
// master as a subprocess").
func Start(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Log == nil {
		cfg.Log = logging.Default("replayclient")
	}
	if cfg.RingSize == 0 {
		cfg.RingSize = 64
	}
	size := uint32(sharedblock.HeaderSize) + cfg.RingSize*64

	provider, err := sharedblock.Open(sharedblock.Options{Path: cfg.SharedBlockPath, Size: size, Create: true})
	if err != nil {
		return nil, err
	}
	block, err := sharedblock.Init(provider, cfg.RingSize)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	cmd := exec.CommandContext(ctx, cfg.MasterBinary,
		"-archive", cfg.ArchivePath,
		"-shared-block", cfg.SharedBlockPath,
		"-workers", strconv.Itoa(cfg.WorkerCount),
	)
	cmd.SysProcAttr = processGroupAttr()
	if err := cmd.Start(); err != nil {
		_ = provider.Close()
		return nil, &errutil.IoError{Op: "start orchestrator master", Cause: err}
	}

	return &Client{cfg: cfg, provider: provider, block: block, cmd: cmd, log: cfg.Log}, nil
}

// PollProgress reads the SharedControlBlock's atomic counters and
// reports the current status (spec §4.8 "poll_progress(&mut Progress) →
// {Running, Complete, ResultNotReady, Error}").
func (c *Client) PollProgress() (Progress, Status) {
	p := Progress{
		Successes:              map[model.Tag]uint32{},
		Skips:                  map[model.Tag]uint32{},
		Caches:                 map[model.Tag]uint32{},
		Parses:                 map[model.Tag]uint32{},
		Failures:               map[model.Tag]uint32{},
		ModulesTotal:           c.block.ModulesTotal(),
		ModulesCompleted:       c.block.ModulesCompleted(),
		ModulesBanned:          c.block.ModulesBanned(),
		ModulesValidationFailed: c.block.ModulesValidationFailed(),
		Started:                c.block.ProgressStarted(),
		Complete:               c.block.ProgressComplete(),
	}
	for _, tag := range model.PipelineTags {
		s, _ := c.block.Counter(tag, sharedblock.CounterSuccesses)
		sk, _ := c.block.Counter(tag, sharedblock.CounterSkips)
		ca, _ := c.block.Counter(tag, sharedblock.CounterCaches)
		pa, _ := c.block.Counter(tag, sharedblock.CounterParses)
		f, _ := c.block.Counter(tag, sharedblock.CounterFailures)
		p.Successes[tag], p.Skips[tag], p.Caches[tag], p.Parses[tag], p.Failures[tag] = s, sk, ca, pa, f
	}

	switch {
	case !p.Started:
		return p, StatusResultNotReady
	case p.Complete:
		return p, StatusComplete
	default:
		return p, StatusRunning
	}
}

// CondensedProgress is the (completed, total) pair weighted to avoid
// apparent backward movement as modules stream in (spec §4.8
// "compute_condensed_progress... weights module progress ×1/10 and folds
// skipped/cached counts in with ×1/100 weight").
type CondensedProgress struct {
	Completed float64
	Total     float64
}

// ComputeCondensedProgress folds pipeline and module counters into a
// single monotonically-increasing (completed, total) pair.
func ComputeCondensedProgress(p Progress) CondensedProgress {
	var completed, total float64
	for _, tag := range model.PipelineTags {
		completed += float64(p.Successes[tag])
		completed += float64(p.Skips[tag]) * 0.01
		completed += float64(p.Caches[tag]) * 0.01
		completed += float64(p.Failures[tag])
		total += float64(p.Successes[tag] + p.Skips[tag] + p.Caches[tag] + p.Failures[tag] + p.Parses[tag])
	}
	completed += float64(p.ModulesCompleted) * 0.1
	total += float64(p.ModulesTotal) * 0.1
	return CondensedProgress{Completed: completed, Total: total}
}

// Wait blocks until the master subprocess exits.
func (c *Client) Wait() error {
	if err := c.cmd.Wait(); err != nil {
		return &errutil.IoError{Op: "wait for orchestrator master", Cause: err}
	}
	return nil
}

// Kill forcibly terminates the master and every worker it spawned via
// process-group signal delivery (spec §4.8 "kill()... children killed
// via job/process-group").
func (c *Client) Kill() error {
	if c.cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-c.cmd.Process.Pid, unix.SIGKILL); err != nil {
		return &errutil.IoError{Op: "kill orchestrator process group", Cause: err}
	}
	return nil
}

// Close releases the SharedControlBlock mapping. Call after Wait or Kill.
func (c *Client) Close() error {
	return c.provider.Close()
}

// WaitTimeout waits for completion or returns a TimeoutDetected error
// after d, killing the master on timeout.
func (c *Client) WaitTimeout(d time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- c.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		_ = c.Kill()
		return &errutil.TimeoutDetected{Operation: "orchestrator master wait"}
	}
}
