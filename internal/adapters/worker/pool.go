// Package worker provides the worker-pool executor adapter. Workers receive
// (action-name, command, target-paths) items, run the command in a shell,
// and report success or failure with captured stderr.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// ScratchRoot holds the per-worker scratch directories.
const ScratchRoot = "tmp"

// Pool implements ports.Executor over a fixed set of worker goroutines.
// Communication is message passing only: the planner owns all build state,
// workers own nothing but their scratch directory.
type Pool struct {
	logger ports.Logger

	requests chan ports.WorkItem
	results  chan ports.WorkResult
	group    *errgroup.Group
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPool creates an unstarted pool.
func NewPool(logger ports.Logger) *Pool {
	return &Pool{logger: logger}
}

// Start launches the workers and creates their scratch directories.
func (p *Pool) Start(ctx context.Context, workers int) error {
	if workers < 1 {
		workers = 1
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.requests = make(chan ports.WorkItem)
	p.results = make(chan ports.WorkResult, workers)
	p.group, _ = errgroup.WithContext(p.ctx)

	for i := range workers {
		if err := os.MkdirAll(scratchDir(i), 0o750); err != nil {
			return zerr.Wrap(err, "failed to create worker scratch directory")
		}
		p.group.Go(func() error {
			p.run(i)
			return nil
		})
	}
	return nil
}

// Dispatch hands an item to an idle worker. Once the pool is cancelled,
// dispatching fails fast.
func (p *Pool) Dispatch(item ports.WorkItem) error {
	if err := p.ctx.Err(); err != nil {
		return zerr.Wrap(err, "worker pool cancelled")
	}
	select {
	case p.requests <- item:
		return nil
	case <-p.ctx.Done():
		return zerr.Wrap(p.ctx.Err(), "worker pool cancelled")
	}
}

// Results delivers completion messages.
func (p *Pool) Results() <-chan ports.WorkResult {
	return p.results
}

// Stop sends the shutdown sentinel (channel close) to all workers and waits
// for them to drain.
func (p *Pool) Stop() error {
	close(p.requests)
	err := p.group.Wait()
	p.cancel()
	close(p.results)
	return err
}

// run is one worker's loop: receive, execute, report.
func (p *Pool) run(id int) {
	for item := range p.requests {
		stderr, err := p.execute(id, item)
		select {
		case p.results <- ports.WorkResult{WorkerID: id, ActionName: item.ActionName, Err: err, Stderr: stderr}:
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) execute(id int, item ports.WorkItem) (string, error) {
	ctx := p.ctx
	if item.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, item.Timeout)
		defer cancel()
	}

	targets := strings.Split(item.Targets, "|")
	for _, t := range targets {
		if err := ensureParent(t); err != nil {
			return "", err
		}
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", item.Command) //nolint:gosec // resolved build command
	cmd.Env = append(os.Environ(), "TMPDIR="+scratchDir(id))
	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.deletePartialOutputs(targets)
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		failure := zerr.With(domain.ErrActionFailure, "action", item.ActionName)
		failure = zerr.With(failure, "command", item.Command)
		return stderr.String(), zerr.With(failure, "exit_code", exitCode)
	}

	if item.IsTest {
		p.recycleScratch(id)
	}
	return "", nil
}

// deletePartialOutputs removes whatever the failed command left behind so a
// later run can never mistake it for a fresh artifact.
func (p *Pool) deletePartialOutputs(targets []string) {
	for _, t := range targets {
		if t == "" {
			continue
		}
		if err := os.Remove(t); err != nil && !os.IsNotExist(err) {
			p.logger.Warn(fmt.Sprintf("failed to delete partial output %s: %v", t, err))
		}
	}
}

// recycleScratch empties the worker's scratch directory after a successful
// test. Failed tests keep it for inspection.
func (p *Pool) recycleScratch(id int) {
	dir := scratchDir(id)
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn(fmt.Sprintf("failed to clean scratch %s: %v", dir, err))
		return
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		p.logger.Warn(fmt.Sprintf("failed to recreate scratch %s: %v", dir, err))
	}
}

func scratchDir(id int) string {
	return filepath.Join(ScratchRoot, fmt.Sprintf("worker-%d", id))
}

// ensureParent materialises the intermediate directories of path.
func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create parent directory")
	}
	return nil
}

var _ ports.Executor = (*Pool)(nil)
