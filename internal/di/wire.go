//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"chatwave/internal/dbmysql"
	"chatwave/internal/server"
)

// InitializeServer assembles the reference server: config, mysql, the
// realtime hub and the HTTP handlers. Wire generates the real body.
func InitializeServer() (*Application, error) {
	wire.Build(
		ProvideConfig,
		dbmysql.NewMySQL,
		dbmysql.NewUserRepository,
		dbmysql.NewMessageRepository,
		dbmysql.NewFollowRepository,
		server.NewHub,
		wire.Bind(new(server.Pusher), new(*server.Hub)),
		ProvideTranslator,
		ProvideImageVault,
		server.NewService,
		server.NewHandlers,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
