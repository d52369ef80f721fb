// Command fossilize-replay is the orchestrator master entry point (spec
// §4.7). Flag parsing is intentionally minimal: CLI front ends are out
// of scope, this binary only exists so the orchestrator library has a
// process to spawn.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
	"github.com/nmxmxh/fossilize/internal/orchestrator"
	"github.com/nmxmxh/fossilize/internal/sharedblock"
)

func main() {
	archivePath := flag.String("archive", "", "path to the archive to replay")
	sharedBlockPath := flag.String("shared-block", "", "path to the SharedControlBlock backing file")
	workerBinary := flag.String("worker-binary", "fossilize-replay-worker", "path to the worker subprocess binary")
	workers := flag.Int("workers", 1, "number of worker subprocesses")
	flag.Parse()

	log := logging.Default("fossilize-replay")
	if *archivePath == "" || *sharedBlockPath == "" {
		log.Fatal("missing required flags", logging.String("need", "-archive and -shared-block"))
	}

	db, err := archive.Open(*archivePath, archive.ReadOnly, archive.Options{})
	if err != nil {
		log.Fatal("failed to open archive", logging.Err(err))
	}
	totals := make(map[model.Tag]int)
	for _, tag := range model.PipelineTags {
		totals[tag] = len(db.GetHashListForResourceTag(tag))
	}
	_ = db.Close()

	provider, err := sharedblock.Open(sharedblock.Options{Path: *sharedBlockPath})
	if err != nil {
		log.Fatal("failed to attach shared control block", logging.Err(err))
	}
	defer provider.Close()
	block, err := sharedblock.Attach(provider)
	if err != nil {
		log.Fatal("shared control block not initialized", logging.Err(err))
	}
	block.SetProgressStarted(true)
	for tag, total := range totals {
		_ = block.SetStaticTotal(tag, uint32(total))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := orchestrator.New(orchestrator.Config{
		WorkerBinary:    *workerBinary,
		ArchivePath:     *archivePath,
		SharedBlockPath: *sharedBlockPath,
		WorkerCount:     *workers,
		Totals:          totals,
		Log:             log,
	})

	results, err := m.Run(ctx)
	block.SetProgressComplete(true)
	if err != nil {
		log.Error("replay finished with errors", logging.Err(err))
	}

	dirty := false
	for _, r := range results {
		if r.Final == orchestrator.Failed {
			dirty = true
		}
	}
	if dirty {
		os.Exit(1)
	}
}
