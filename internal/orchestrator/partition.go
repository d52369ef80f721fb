package orchestrator

import "github.com/nmxmxh/fossilize/internal/model"

// partitionRange is a half-open [Start, End) index window into one
// pipeline tag's hash list, assigned to a single worker (spec §4.7
// "partitions the pipeline index space evenly across N workers
// (graphics, compute, raytracing partitioned independently)").
type partitionRange struct {
	Start, End int
}

// partitionEvenly splits [0, total) into n contiguous, as-equal-as-
// possible ranges. Remainder indices are distributed to the first
// ranges so every worker gets either k or k+1 indices.
func partitionEvenly(total, n int) []partitionRange {
	if n <= 0 {
		return nil
	}
	ranges := make([]partitionRange, n)
	base := total / n
	rem := total % n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		ranges[i] = partitionRange{Start: start, End: start + size}
		start += size
	}
	return ranges
}

// resumeStart computes the next respawn's partition start per spec §4.7
// "max(recorded_progress, previous_start) + 1 per tag".
func resumeStart(recordedProgress, previousStart int) int {
	if recordedProgress > previousStart {
		return recordedProgress + 1
	}
	return previousStart + 1
}

// partitionPlan is the full per-worker, per-tag assignment for one
// replay run.
type partitionPlan struct {
	workers []map[model.Tag]partitionRange
}

// buildPlan partitions each pipeline tag's total count independently
// across workerCount workers.
func buildPlan(totals map[model.Tag]int, workerCount int) partitionPlan {
	plan := partitionPlan{workers: make([]map[model.Tag]partitionRange, workerCount)}
	for i := range plan.workers {
		plan.workers[i] = make(map[model.Tag]partitionRange)
	}
	for _, tag := range model.PipelineTags {
		ranges := partitionEvenly(totals[tag], workerCount)
		for i, r := range ranges {
			plan.workers[i][tag] = r
		}
	}
	return plan
}
