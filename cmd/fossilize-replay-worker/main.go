// Command fossilize-replay-worker is the orchestrator worker subprocess
// entry point (spec §4.7). It opens the archive read-only, replays its
// assigned index ranges, and reports progress over stdout using the
// line protocol the master understands.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
	"github.com/nmxmxh/fossilize/internal/replay"
	"github.com/nmxmxh/fossilize/internal/sharedblock"
)

// rangeFlags accumulates repeated -range tag:start:end flags.
type rangeFlags map[model.Tag]replay.Range

func (r rangeFlags) String() string { return "" }

func (r rangeFlags) Set(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return fmt.Errorf("range must be tag:start:end, got %q", value)
	}
	var tag model.Tag
	found := false
	for _, t := range model.PipelineTags {
		if t.String() == parts[0] {
			tag, found = t, true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown pipeline tag %q", parts[0])
	}
	start, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("bad range start: %w", err)
	}
	end, err := strconv.Atoi(parts[2])
	if err != nil {
		return fmt.Errorf("bad range end: %w", err)
	}
	r[tag] = replay.Range{Tag: tag, Start: start, End: end}
	return nil
}

func main() {
	archivePath := flag.String("archive", "", "path to the archive to replay, opened read-only")
	sharedBlockPath := flag.String("shared-block", "", "path to the SharedControlBlock backing file")
	workerIndex := flag.Int("worker-index", 0, "this worker's index within the partition plan")
	crashAfter := flag.String("crash-after", "", "tag:index - deterministically self-raise SIGABRT "+
		"after reporting progress for this index (crash-injection for testing, spec §8 S5)")
	ranges := make(rangeFlags)
	flag.Var(ranges, "range", "tag:start:end, repeatable")
	flag.Parse()

	log := logging.Default(fmt.Sprintf("fossilize-replay-worker[%d]", *workerIndex))
	if *archivePath == "" || *sharedBlockPath == "" {
		log.Fatal("missing required flags")
	}
	trigger, err := parseCrashAfter(*crashAfter)
	if err != nil {
		log.Fatal("bad -crash-after", logging.Err(err))
	}

	faultSet := readFaultSet(os.Stdin)

	// Setup failures below (archive/shared-block unavailable) are not a
	// caught fatal signal, so they exit 1 rather than the CRASH+exit-2
	// protocol reserved for the signal handler (spec §6) — otherwise the
	// master would arm its crash timer, see no progress, time out, and
	// respawn into the same deterministic failure forever, since
	// resumeStart never advances without observed progress.
	db, err := archive.Open(*archivePath, archive.ReadOnly, archive.Options{})
	if err != nil {
		log.Error("failed to open archive", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	provider, err := sharedblock.Open(sharedblock.Options{Path: *sharedBlockPath})
	if err != nil {
		log.Error("failed to attach shared control block", logging.Err(err))
		os.Exit(1)
	}
	defer provider.Close()
	block, err := sharedblock.Attach(provider)
	if err != nil {
		log.Error("shared control block not initialized", logging.Err(err))
		os.Exit(1)
	}

	creator := &ipcCreator{block: block, faultSet: faultSet, log: log, crashAt: trigger}
	installCrashHandler(creator)

	r := replay.New(db, log)
	if _, err := r.Run(creator, ranges); err != nil {
		log.Error("replay failed", logging.Err(err))
		os.Exit(1)
	}
	os.Exit(0)
}

// parseCrashAfter parses an optional "-crash-after tag:index" flag value.
func parseCrashAfter(value string) (crashTrigger, error) {
	if value == "" {
		return crashTrigger{}, nil
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return crashTrigger{}, fmt.Errorf("crash-after must be tag:index, got %q", value)
	}
	var tag model.Tag
	found := false
	for _, t := range model.PipelineTags {
		if t.String() == parts[0] {
			tag, found = t, true
			break
		}
	}
	if !found {
		return crashTrigger{}, fmt.Errorf("unknown pipeline tag %q", parts[0])
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return crashTrigger{}, fmt.Errorf("bad crash-after index: %w", err)
	}
	return crashTrigger{tag: tag, index: index, enabled: true}, nil
}

// installCrashHandler watches for the fatal signals a real driver crash
// would raise (spec §9 "Keep the handler as a narrow, async-signal-safe
// shim that writes pre-formatted bytes to a file descriptor and then
// _exit's"). Go can't run the handler inside the signal trampoline itself
// the way the original's sigaction-based handler does, so this notifies a
// goroutine instead; the goroutine still does the minimum work (report,
// then os.Exit(2)) before anything else in the process can interleave.
func installCrashHandler(c *ipcCreator) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGSEGV, syscall.SIGBUS, syscall.SIGILL, syscall.SIGFPE, syscall.SIGABRT)
	go func() {
		<-sig
		c.reportCrash()
		os.Exit(2)
	}()
}

// readFaultSet parses the stdin fault-set feed: one hex hash per line,
// terminated by a blank line (spec §4.7).
func readFaultSet(r *os.File) map[model.Hash]struct{} {
	faults := make(map[model.Hash]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		if v, err := strconv.ParseUint(line, 16, 64); err == nil {
			faults[model.Hash(v)] = struct{}{}
		}
	}
	return faults
}
