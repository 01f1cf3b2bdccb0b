package planner

import (
	"context"
	"fmt"

	"go.trai.ch/zerr"

	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// Build plans the project, cleans stale outputs, and drives queued actions
// over the worker pool until everything is clean or something fails.
func (pl *Planner) Build(ctx context.Context, workers int) error {
	if err := pl.Plan(); err != nil {
		return err
	}
	pl.proj.StatAll(statFile)
	if err := pl.cleanupStale(); err != nil {
		return err
	}
	if err := pl.primeAll(); err != nil {
		return err
	}

	failure := pl.runActions(ctx, workers)

	if failure == nil {
		if err := pl.cache.Flush(); err != nil {
			failure = err
		}
	}
	if err := pl.tel.Close(); err != nil && failure == nil {
		failure = err
	}

	pl.log.Info(fmt.Sprintf("files: %d seen, %d built, %d updated",
		pl.proj.FilesSeen, pl.proj.FilesBuilt, pl.proj.FilesUpdated))
	if failure != nil {
		pl.log.Info(fmt.Sprintf("%d outstanding files remain", len(pl.proj.Outstanding)))
		return zerr.Wrap(failure, "build failed")
	}
	return nil
}

// runActions is the scheduling loop: dispatch ready actions in declaration
// order to idle workers and fold completions back into the file state
// machine.
func (pl *Planner) runActions(ctx context.Context, workers int) error {
	if len(pl.proj.Outstanding) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if err := pl.exec.Start(ctx, workers); err != nil {
		return err
	}
	defer func() {
		_ = pl.exec.Stop()
	}()

	idle := workers
	for len(pl.proj.Outstanding) > 0 {
		dispatched := false
		for idle > 0 {
			a := pl.proj.Queue.Pop()
			if a == nil {
				break
			}
			pl.vertices[a.Name] = pl.tel.Record(a.Name)
			if err := pl.exec.Dispatch(ports.WorkItem{
				ActionName: a.Name,
				Command:    a.Resolved,
				Targets:    a.TargetPaths(),
				Timeout:    a.Timeout,
				IsTest:     a.IsTest,
			}); err != nil {
				return err
			}
			idle--
			dispatched = true
		}
		if len(pl.proj.Outstanding) == 0 {
			break
		}
		if idle == workers && !dispatched {
			return zerr.With(domain.ErrSchedulerStalled,
				"outstanding", len(pl.proj.Outstanding))
		}

		select {
		case res := <-pl.exec.Results():
			idle++
			if err := pl.handleResult(res); err != nil {
				return err
			}
		case <-ctx.Done():
			return zerr.Wrap(ctx.Err(), "build cancelled")
		}
	}
	return nil
}

// handleResult applies one worker completion.
func (pl *Planner) handleResult(res ports.WorkResult) error {
	a, ok := pl.proj.ActionByName[res.ActionName]
	if !ok {
		return zerr.With(domain.ErrSchedulerStalled, "unknown-action", res.ActionName)
	}
	if v, ok := pl.vertices[a.Name]; ok {
		v.Complete(res.Err)
	}
	if res.Err != nil {
		// Re-print the command and captured stderr so the failure is
		// self-contained.
		pl.log.Error(zerr.Wrap(res.Err, a.Origin.String()+"| ERROR"))
		pl.log.Info(a.Resolved)
		if res.Stderr != "" {
			pl.log.Info(res.Stderr)
		}
		return res.Err
	}
	return pl.applyCompletion(a)
}
