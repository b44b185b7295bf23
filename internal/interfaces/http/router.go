package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LotUC      *inventory.LotUseCase
	ConsumeUC  *inventory.ConsumeUseCase
	StockUC    *inventory.StockUseCase
	MovementUC *inventory.MovementUseCase
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Todas las rutas de /api requieren Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	lotHandler := NewLotHandler(deps.LotUC)
	invHandler := NewInventoryHandler(deps.ConsumeUC, deps.StockUC, deps.MovementUC)

	// Stocks: /critical antes de /:stockId
	stocks := api.Group("/stocks")
	stocks.Get("/critical", invHandler.CriticalStocks)
	stocks.Get("/:stockId/summary", invHandler.Summary)
	stocks.Get("/:stockId/lots/available", lotHandler.ListAvailable)
	stocks.Get("/:stockId/lots", lotHandler.List)
	stocks.Post("/:stockId/lots", lotHandler.Receive)
	stocks.Post("/:stockId/consume", invHandler.Consume)
	stocks.Get("/:stockId/movements", invHandler.ListMovements)

	// Lotes
	lots := api.Group("/lots")
	lots.Get("/:id", lotHandler.Get)
	lots.Put("/:id", lotHandler.Update)
	lots.Delete("/:id", lotHandler.SoftDelete)
	lots.Post("/:id/restore", lotHandler.Restore)
	lots.Delete("/:id/force", RequireRole(jwt.RoleAdmin), lotHandler.HardDelete)

	// Movimientos
	api.Get("/movements/:id", invHandler.GetMovement)
}
