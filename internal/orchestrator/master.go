package orchestrator

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
)

// Config configures a Master run (spec §4.7 "Topology").
type Config struct {
	// WorkerBinary is the path to the worker subprocess executable
	// (cmd/fossilize-replay-worker).
	WorkerBinary string
	// ArchivePath is the archive the workers replay read-only.
	ArchivePath string
	// SharedBlockPath is the file backing the mmap'd SharedControlBlock.
	SharedBlockPath string
	// WorkerCount is the number of worker subprocesses to partition
	// across (spec §4.7 "forks or spawns N worker subprocesses").
	WorkerCount int
	// CrashTimer bounds how long the master waits for a worker's clean
	// exit after CRASH before declaring TimedOut (spec §4.7 "default
	// 30 s").
	CrashTimer time.Duration
	// HeartbeatTimer bounds how long the master waits between HEARTBEAT
	// or progress messages during Running before declaring TimedOut.
	HeartbeatTimer time.Duration
	// Totals is the archive-derived index count per pipeline tag, used
	// to build the initial partition plan.
	Totals map[model.Tag]int

	Log *logging.Logger
}

func (c *Config) setDefaults() {
	if c.CrashTimer == 0 {
		c.CrashTimer = 30 * time.Second
	}
	if c.HeartbeatTimer == 0 {
		c.HeartbeatTimer = 30 * time.Second
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.Log == nil {
		c.Log = logging.Default("orchestrator")
	}
}

// WorkerResult is the terminal outcome of one worker's partition.
type WorkerResult struct {
	Index int
	Final State
	// CleanExit is true iff the process last exited 0 or 2 (spec §4.7
	// "Crashed → Done on clean exit with status 2... iff progress
	// markers were seen").
	CleanExit bool
}

// Master drives a replay across WorkerCount subprocesses (spec §4.7).
type Master struct {
	cfg   Config
	faces *FaultSet

	mu     sync.Mutex
	states []State
	resume []map[model.Tag]int // per-worker, per-tag next start index
}

// New builds a Master ready to Run.
func New(cfg Config) *Master {
	cfg.setDefaults()
	m := &Master{cfg: cfg, faces: NewFaultSet()}
	m.states = make([]State, cfg.WorkerCount)
	m.resume = make([]map[model.Tag]int, cfg.WorkerCount)
	for i := range m.resume {
		m.resume[i] = make(map[model.Tag]int)
	}
	return m
}

// FaultSet exposes the master's accumulated fault set (spec §4.8
// "get_faulty_* / get_*_failed_validation").
func (m *Master) FaultSet() *FaultSet { return m.faces }

// Run partitions the archive across workers and drives every worker's
// respawn loop to completion, returning one WorkerResult per worker
// index. It uses an errgroup to bound the concurrent subprocess fan-out
// to WorkerCount (spec §5 "multiple cooperating subprocesses across the
// system").
func (m *Master) Run(ctx context.Context) ([]WorkerResult, error) {
	plan := buildPlan(m.cfg.Totals, m.cfg.WorkerCount)
	results := make([]WorkerResult, m.cfg.WorkerCount)

	errs := make([]error, m.cfg.WorkerCount)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.cfg.WorkerCount; i++ {
		i := i
		g.Go(func() error {
			res, err := m.runWorkerUntilDone(gctx, i, plan.workers[i])
			results[i] = res
			errs[i] = err
			return err
		})
	}
	// g.Wait's return value is only the first error seen; combine every
	// worker's outcome so a caller auditing a multi-worker run doesn't
	// lose all but one failure (spec §9 "combining multiple
	// teardown/respawn errors without losing any").
	_ = g.Wait()
	if err := teardown(errs...); err != nil {
		return results, err
	}
	return results, nil
}

// runWorkerUntilDone respawns worker i until it reaches Done or Failed,
// advancing its partition start on every Crashed/TimedOut outcome (spec
// §4.7 "respawns a fresh worker carrying the updated fault set").
func (m *Master) runWorkerUntilDone(ctx context.Context, index int, ranges map[model.Tag]partitionRange) (WorkerResult, error) {
	starts := map[model.Tag]int{}
	for tag, r := range ranges {
		starts[tag] = r.Start
	}

	for {
		final, progress, exitErr := m.runOneAttempt(ctx, index, starts, ranges)
		m.setState(index, final)

		switch final {
		case Done:
			return WorkerResult{Index: index, Final: Done, CleanExit: true}, nil
		case Failed:
			return WorkerResult{Index: index, Final: Failed}, &errutil.CrashDetected{WorkerID: index, Signal: "no progress before fatal exit"}
		case Crashed, TimedOut:
			for tag, p := range progress {
				starts[tag] = resumeStart(p.Index, starts[tag]-1)
			}
			if exitErr != nil {
				m.cfg.Log.Warn("worker respawning after crash", logging.Int("worker", index), logging.Err(exitErr))
			}
			continue
		default:
			return WorkerResult{Index: index, Final: final}, &errutil.CrashDetected{WorkerID: index, Signal: "unexpected terminal state " + final.String()}
		}
	}
}

// runOneAttempt spawns one subprocess for worker index, feeds it the
// fault set, and drives the state machine from its IPC stream until a
// terminal state (Done, Failed) or a crash/timeout outcome is reached.
func (m *Master) runOneAttempt(ctx context.Context, index int, starts map[model.Tag]int, ranges map[model.Tag]partitionRange) (State, map[model.Tag]Progress, error) {
	args := []string{
		"-archive", m.cfg.ArchivePath,
		"-shared-block", m.cfg.SharedBlockPath,
		"-worker-index", strconv.Itoa(index),
	}
	for _, tag := range model.PipelineTags {
		r, ok := ranges[tag]
		if !ok {
			continue
		}
		start := starts[tag]
		if start < r.Start {
			start = r.Start
		}
		args = append(args, "-range", tag.String()+":"+strconv.Itoa(start)+":"+strconv.Itoa(r.End))
	}

	cmd := exec.CommandContext(ctx, m.cfg.WorkerBinary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Failed, nil, &errutil.IoError{Op: "worker stdin pipe", Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Failed, nil, &errutil.IoError{Op: "worker stdout pipe", Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return Failed, nil, &errutil.IoError{Op: "start worker", Cause: err}
	}

	if _, err := stdin.Write([]byte(encodeFaultSet(m.faces.Snapshot()))); err != nil {
		m.cfg.Log.Warn("failed to write fault set to worker stdin", logging.Int("worker", index), logging.Err(err))
	}
	_ = stdin.Close()

	state := Starting
	sawProgress := false
	progress := make(map[model.Tag]Progress)
	crashTimer := time.NewTimer(0)
	if !crashTimer.Stop() {
		<-crashTimer.C
	}
	heartbeat := time.NewTimer(m.cfg.HeartbeatTimer)
	defer heartbeat.Stop()
	defer crashTimer.Stop()

	lines := make(chan string)
	scanDone := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanDone <- scanner.Err()
	}()

	var exitErr error
loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				exitErr = cmd.Wait()
				state = transition(state, exitEventFor(exitErr), sawProgress)
				break loop
			}
			msg, err := parseMessage(line)
			if err != nil {
				m.cfg.Log.Warn("malformed IPC line", logging.String("line", line), logging.Err(err))
				continue
			}
			if tag, ok := msg.tagForProgress(); ok {
				sawProgress = true
				progress[tag] = Progress{Index: msg.Index, Hash: msg.Hash}
				heartbeat.Reset(m.cfg.HeartbeatTimer)
			}
			switch msg.Type {
			case msgCrash:
				state = transition(state, evCrash, sawProgress)
				crashTimer.Reset(m.cfg.CrashTimer)
			case msgModule:
				m.faces.Add(msg.Hash)
			case msgHeartbeat:
				heartbeat.Reset(m.cfg.HeartbeatTimer)
			}
			if msg.tagKnown() {
				state = transition(state, evProgress, sawProgress)
			}
		case <-crashTimer.C:
			state = TimedOut
			killProcessGroup(cmd)
			break loop
		case <-heartbeat.C:
			if state == Running {
				state = TimedOut
				killProcessGroup(cmd)
				break loop
			}
		case <-ctx.Done():
			killProcessGroup(cmd)
			return Failed, progress, ctx.Err()
		}
	}
	return state, progress, exitErr
}

func (m message) tagKnown() bool {
	_, ok := m.tagForProgress()
	return ok
}

func exitEventFor(err error) eventKind {
	if err == nil {
		return evExitClean
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 2 {
		return evExitClean
	}
	return evExitFatal
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}

func (m *Master) setState(index int, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[index] = s
}

// States returns a snapshot of every worker's last-observed state.
func (m *Master) States() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// teardown combines errors from multiple worker teardown steps without
// losing any (spec §9 "go.uber.org/multierr... combining multiple
// teardown/respawn errors without losing any").
func teardown(errs ...error) error {
	return multierr.Combine(errs...)
}
