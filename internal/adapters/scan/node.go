package scan

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// NodeID is the unique identifier for the include scanner Graft node.
const NodeID graft.ID = "adapter.scanner"

func init() {
	graft.Register(graft.Node[ports.IncludeScanner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{options.NodeID},
		Run: func(ctx context.Context) (ports.IncludeScanner, error) {
			opts, err := graft.Dep[*options.Options](ctx)
			if err != nil {
				return nil, err
			}
			return New(opts.Vars["EXTERNALS"]), nil
		},
	})
}
