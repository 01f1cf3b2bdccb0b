package options

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the options Graft node. The node
// loads the options file from the working directory, which is the build
// directory by the bootstrap tool's contract.
const NodeID graft.ID = "adapter.options"

func init() {
	graft.Register(graft.Node[*Options]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Options, error) {
			return NewLoader().Load()
		},
	})
}
