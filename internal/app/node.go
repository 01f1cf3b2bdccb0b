package app

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
	"github.com/GrahamStJack/bottom-up-build/internal/engine/planner"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the components node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{planner.NodeID},
		Run: func(ctx context.Context) (*App, error) {
			pl, err := graft.Dep[*planner.Planner](ctx)
			if err != nil {
				return nil, err
			}
			return New(pl), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{AppNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log}, nil
		},
	})
}
