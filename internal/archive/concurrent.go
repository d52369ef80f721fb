package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

// OpenConcurrent opens a per-process shard of a logically shared archive:
// basePath with a random UUID suffix inserted before the extension, so
// multiple writer processes never contend for the same file (spec §5
// "except in the concurrent-writer mode where each process owns its own
// distinct file", §9 supplemented feature 5's sibling).
func OpenConcurrent(basePath string, opts Options) (*Database, error) {
	ext := filepath.Ext(basePath)
	shard := fmt.Sprintf("%s.%s%s", strings.TrimSuffix(basePath, ext), uuid.NewString(), ext)
	return Open(shard, Append, opts)
}

// Merge folds every (tag, hash, payload) in src into dst. Existing keys in
// dst are left untouched (WriteEntry's idempotent no-op), matching the
// same merge semantics a single-file archive would have produced had all
// shards been written to it directly (spec §4.4, §9 supplemented feature
// 1's companion: concurrent shards must merge without conflict).
func Merge(dst *Database, src *Database) error {
	for _, tag := range append(append([]model.Tag{}, model.PlaybackOrder...), model.TagApplicationBlobLink) {
		for _, hash := range src.GetHashListForResourceTag(tag) {
			if dst.HasEntry(tag, hash) {
				continue
			}
			payload, err := src.ReadEntry(tag, hash)
			if err != nil {
				return &errutil.IoError{Op: "merge read " + tag.String(), Cause: err}
			}
			if err := dst.WriteEntry(tag, hash, payload); err != nil {
				return &errutil.IoError{Op: "merge write " + tag.String(), Cause: err}
			}
		}
	}
	return nil
}

// MergeShards merges every file matching basePath's UUID-shard glob
// pattern into a single Append-mode archive at basePath, then removes the
// shard files. This is the counterpart embedders run once capture
// finishes writing with OpenConcurrent.
func MergeShards(basePath string, opts Options) error {
	ext := filepath.Ext(basePath)
	pattern := fmt.Sprintf("%s.*%s", strings.TrimSuffix(basePath, ext), ext)
	shards, err := filepath.Glob(pattern)
	if err != nil {
		return &errutil.IoError{Op: "glob shards", Cause: err}
	}

	dst, err := Open(basePath, Append, opts)
	if err != nil {
		return err
	}
	defer dst.Close()

	for _, shard := range shards {
		src, err := Open(shard, ReadOnly, opts)
		if err != nil {
			return err
		}
		mergeErr := Merge(dst, src)
		_ = src.Close()
		if mergeErr != nil {
			return mergeErr
		}
		if err := os.Remove(shard); err != nil {
			return &errutil.IoError{Op: "remove merged shard", Cause: err}
		}
	}
	return nil
}
