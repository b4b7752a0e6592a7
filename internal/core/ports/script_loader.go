package ports

import "go.trai.ch/quake/internal/core/domain"

// ScriptLoader is the script boundary: an external front end evaluates the
// build script once per invocation and registers task definitions whose
// bodies call back into the engine primitives. The core exposes no other
// surface to the script layer.
//
//go:generate go run go.uber.org/mock/mockgen -source=script_loader.go -destination=mocks/mock_script_loader.go -package=mocks
type ScriptLoader interface {
	// Load evaluates the build script at path and registers every task
	// definition it declares into reg.
	Load(path string, reg *domain.Registry) error
}
