package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/worker"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports/mocks"
)

func newPool(t *testing.T, workers int) *worker.Pool {
	t.Helper()
	t.Chdir(t.TempDir())

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	p := worker.NewPool(log)
	require.NoError(t, p.Start(context.Background(), workers))
	return p
}

func TestPool_RunsCommandAndReports(t *testing.T) {
	p := newPool(t, 2)

	require.NoError(t, p.Dispatch(ports.WorkItem{
		ActionName: "touch-out",
		Command:    "mkdir -p obj && touch obj/out",
		Targets:    "obj/out",
	}))

	res := <-p.Results()
	assert.Equal(t, "touch-out", res.ActionName)
	assert.NoError(t, res.Err)
	_, err := os.Stat("obj/out")
	assert.NoError(t, err)

	require.NoError(t, p.Stop())
}

func TestPool_FailureDeletesPartialOutputs(t *testing.T) {
	p := newPool(t, 1)

	require.NoError(t, p.Dispatch(ports.WorkItem{
		ActionName: "half-write",
		Command:    "mkdir -p obj && touch obj/partial && echo boom >&2 && exit 3",
		Targets:    "obj/partial",
	}))

	res := <-p.Results()
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, domain.ErrActionFailure)
	assert.Contains(t, res.Stderr, "boom")

	_, err := os.Stat("obj/partial")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, p.Stop())
}

func TestPool_CreatesParentDirectories(t *testing.T) {
	p := newPool(t, 1)

	require.NoError(t, p.Dispatch(ports.WorkItem{
		ActionName: "deep",
		Command:    "touch obj/a/b/out",
		Targets:    filepath.Join("obj", "a", "b", "out"),
	}))

	res := <-p.Results()
	assert.NoError(t, res.Err)

	require.NoError(t, p.Stop())
}

func TestPool_TimeoutKillsCommand(t *testing.T) {
	p := newPool(t, 1)

	require.NoError(t, p.Dispatch(ports.WorkItem{
		ActionName: "sleepy",
		Command:    "sleep 5",
		Targets:    "obj/never",
		Timeout:    100 * time.Millisecond,
		IsTest:     true,
	}))

	res := <-p.Results()
	assert.Error(t, res.Err)

	require.NoError(t, p.Stop())
}

func TestPool_DispatchFailsFastAfterCancel(t *testing.T) {
	t.Chdir(t.TempDir())
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	p := worker.NewPool(log)
	require.NoError(t, p.Start(ctx, 1))
	cancel()

	// The pool refuses new work once cancelled.
	assert.Error(t, p.Dispatch(ports.WorkItem{ActionName: "late", Command: "true"}))
}
