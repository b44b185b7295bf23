package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/sync/errgroup"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/memory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/postgres"
	infraredis "github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/redis"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/seed"
	httpRouter "github.com/KevinKpekpe/erp-labs-systems-sub000/internal/interfaces/http"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/clock"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/config"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/logger"
)

// repos agrupa los adaptadores de persistencia elegidos por STORAGE_DRIVER.
type repos struct {
	lots       repository.LotRepository
	movements  repository.MovementRepository
	stocks     repository.StockRepository
	categories repository.CategoryRepository
	tx         inventory.TxRunner
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer r.close()

	idem, closeIdem, err := openIdempotency(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacén de idempotencia")
	}
	defer closeIdem()

	clk := clock.Real{}
	stockUC := inventory.NewStockUseCase(r.stocks, r.lots, r.categories, clk, cfg.Inventory.AlertWindowDays)
	lotUC := inventory.NewLotUseCase(r.lots, stockUC, clk, log)
	consumeUC := inventory.NewConsumeUseCase(r.tx, stockUC, r.lots, r.movements, idem, clk, inventory.ConsumeOptions{
		AllowExpired:   cfg.Inventory.ExpiredPolicy == config.ExpiredPolicyAllow,
		Retries:        cfg.Inventory.ConsumeRetries,
		IdempotencyTTL: cfg.Inventory.IdempotencyTTL(),
	}, log)
	movementUC := inventory.NewMovementUseCase(r.movements, stockUC)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "ERP Labs - Lotes",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		LotUC:      lotUC,
		ConsumeUC:  consumeUC,
		StockUC:    stockUC,
		MovementUC: movementUC,
		JWTSecret:  cfg.JWT.Secret,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor HTTP finalizado")
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*repos, error) {
	if cfg.App.Storage == config.StorageMemory {
		store := memory.NewStore()
		if cfg.App.SeedFile != "" {
			cat, err := seed.ParseFile(cfg.App.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := cat.Apply(ctx, store); err != nil {
				return nil, err
			}
			log.Info().
				Int("categories", len(cat.Categories)).
				Int("stocks", len(cat.Stocks)).
				Msg("catálogo cargado en memoria")
		}
		return &repos{
			lots:       store.Lots(),
			movements:  store.Movements(),
			stocks:     store.Stocks(),
			categories: store.Categories(),
			tx:         store.TxRunner(),
			close:      func() {},
		}, nil
	}

	if cfg.DB.AutoMigrate {
		version, err := postgres.Migrate(cfg.DB.ConnectionString())
		if err != nil {
			return nil, err
		}
		log.Info().Uint("version", version).Msg("migraciones aplicadas")
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &repos{
		lots:       postgres.NewLotRepository(pool),
		movements:  postgres.NewMovementRepository(pool),
		stocks:     postgres.NewStockRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		tx:         postgres.NewTxRunner(pool),
		close:      pool.Close,
	}, nil
}

// openIdempotency usa Redis si REDIS_ADDR está definido; si no, un almacén en memoria
// (válido solo con una única instancia).
func openIdempotency(ctx context.Context, cfg *config.Config, log *logger.Logger) (inventory.IdempotencyStore, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR vacío: idempotencia en memoria")
		return memory.NewIdempotencyStore(clock.Real{}), func() {}, nil
	}
	client, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return infraredis.NewIdempotencyStore(client), func() { _ = client.Close() }, nil
}
