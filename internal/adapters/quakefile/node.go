package quakefile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/quake/internal/adapters/fs"
	"go.trai.ch/quake/internal/adapters/shell"
	"go.trai.ch/quake/internal/core/ports"
)

// NodeID is the unique identifier for the quakefile loader Graft node.
const NodeID graft.ID = "adapter.quakefile"

func init() {
	graft.Register(graft.Node[ports.ScriptLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, fs.NodeID},
		Run: func(ctx context.Context) (ports.ScriptLoader, error) {
			exec, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			stater, err := graft.Dep[ports.FileStater](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(exec, stater), nil
		},
	})
}
