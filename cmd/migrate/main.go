// migrate aplica las migraciones pendientes de la base de lotes y termina.
//
// Uso: go run ./cmd/migrate
package main

import (
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/postgres"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/config"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})

	version, err := postgres.Migrate(cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	log.Info().Uint("version", version).Msg("migraciones aplicadas")
}
