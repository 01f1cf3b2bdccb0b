package planner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.trai.ch/zerr"
)

// cleanupStale walks the build-owned subtrees and deletes every file this
// run does not plan to produce, then prunes empty directories. Stale
// outputs from prior runs can therefore never masquerade as fresh.
func (pl *Planner) cleanupStale() error {
	for _, root := range []string{ObjRoot, PrivRoot, DistRoot} {
		if err := pl.cleanupTree(root); err != nil {
			return err
		}
	}
	return nil
}

func (pl *Planner) cleanupTree(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !pl.proj.AllBuilt[path] {
			if err := os.Remove(path); err != nil {
				return zerr.Wrap(err, "failed to delete stale output")
			}
			pl.log.Info("deleted stale " + path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Deepest first, so emptied parents fall too.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	return nil
}
