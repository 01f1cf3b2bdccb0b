package worker

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/logger"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// NodeID is the unique identifier for the worker pool Graft node.
const NodeID graft.ID = "adapter.workers"

func init() {
	graft.Register(graft.Node[ports.Executor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Executor, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewPool(log), nil
		},
	})
}
