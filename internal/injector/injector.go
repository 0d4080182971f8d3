//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/server"
)

// InitializeApp resolves profile (embedded name or file path) and builds the engine.
func InitializeApp(profile string, level log.Level) (*App, error) {
	wire.Build(AppSet)
	return nil, nil
}

func InitializeServer(config server.Config, level log.Level) *server.Server {
	wire.Build(ServerSet)
	return nil
}
