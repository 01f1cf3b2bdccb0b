package planner

import (
	"context"
	"os"
	"strings"

	"github.com/grindlemire/graft"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/depcache"  //nolint:depguard // Wired in engine wiring
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"   //nolint:depguard // Wired in engine wiring
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/scan"      //nolint:depguard // Wired in engine wiring
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/worker"    //nolint:depguard // Wired in engine wiring
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// NodeID is the unique identifier for the planner Graft node.
const NodeID graft.ID = "engine.planner"

// EnvConditionals carries the enabled Bubfile condition tags, comma
// separated. The CLI sets it from the --conditionals flag before graft
// resolution.
const EnvConditionals = "BUB_CONDITIONALS"

func init() {
	graft.Register(graft.Node[*Planner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			options.NodeID,
			depcache.NodeID,
			worker.NodeID,
			scan.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*Planner, error) {
			opts, err := graft.Dep[*options.Options](ctx)
			if err != nil {
				return nil, err
			}
			cache, err := graft.Dep[ports.DependencyStore](ctx)
			if err != nil {
				return nil, err
			}
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			scanner, err := graft.Dep[ports.IncludeScanner](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			var conditionals []string
			if env := os.Getenv(EnvConditionals); env != "" {
				conditionals = strings.Split(env, ",")
			}
			return New(opts, cache, executor, scanner, log, tel, conditionals), nil
		},
	})
}
