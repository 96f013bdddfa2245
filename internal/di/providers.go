package di

import (
	"log"

	"gorm.io/gorm"

	"chatwave/internal/config"
	"chatwave/internal/dbmongo"
	"chatwave/internal/server"
)

// Application holds everything cmd/server needs after wiring.
type Application struct {
	Config   *config.Config
	DB       *gorm.DB
	Hub      *server.Hub
	Handlers *server.Handlers
}

func ProvideConfig() *config.Config {
	return config.Load()
}

func ProvideTranslator() server.Translator {
	return server.NewPassthroughTranslator()
}

// ProvideImageVault connects GridFS image storage when mongo is enabled.
// Disabled mongo yields a nil vault and inline image payloads pass through.
func ProvideImageVault(cfg *config.Config) (server.ImageVault, error) {
	if !cfg.Mongo.Enabled {
		log.Println("mongo disabled, image payloads stay inline")
		return nil, nil
	}
	client, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, err
	}
	return dbmongo.NewImageStore(client), nil
}
