package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"

	progrockadapter "github.com/GrahamStJack/bottom-up-build/internal/adapters/telemetry/progrock"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// NodeID is the unique identifier for the telemetry Graft node.
const NodeID graft.ID = "adapter.telemetry"

// EnvProgress selects the progrock tape UI when set to a non-empty value.
// The CLI sets it from the --progress flag before graft resolution.
const EnvProgress = "BUB_PROGRESS"

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Telemetry, error) {
			if os.Getenv(EnvProgress) != "" {
				return progrockadapter.New(), nil
			}
			return NewNoOp(), nil
		},
	})
}
