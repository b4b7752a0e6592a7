package dirty

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/quake/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/quake/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/quake/internal/core/ports"
)

// NodeID is the unique identifier for the dirty checker Graft node.
const NodeID graft.ID = "engine.dirty"

func init() {
	graft.Register(graft.Node[*Checker]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Checker, error) {
			stater, err := graft.Dep[ports.FileStater](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewChecker(stater, log), nil
		},
	})
}
