package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/inventory"
)

// HeaderIdempotencyKey cabecera opcional que hace seguro reintentar un consumo.
const HeaderIdempotencyKey = "Idempotency-Key"

// InventoryHandler maneja consumos, vista agregada de stocks e historial de movimientos (protegido).
type InventoryHandler struct {
	consume   *inventory.ConsumeUseCase
	stocks    *inventory.StockUseCase
	movements *inventory.MovementUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(consume *inventory.ConsumeUseCase, stocks *inventory.StockUseCase, movements *inventory.MovementUseCase) *InventoryHandler {
	return &InventoryHandler{consume: consume, stocks: stocks, movements: movements}
}

// Consume godoc
// @Summary      Consumir stock por lotes
// @Description  Retira la cantidad con FIFO, FEFO o una asignación manual. La operación es atómica.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        stockId          path    string              true   "ID del stock"
// @Param        Idempotency-Key  header  string              false  "Clave para reintentos seguros"
// @Param        body             body    dto.ConsumeRequest  true   "quantity, method (fifo|fefo|manual), motif, manual_lots"
// @Success      201  {object}  dto.ConsumeResponse
// @Success      200  {object}  dto.ConsumeResponse  "repetición de una solicitud ya registrada"
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stocks/{stockId}/consume [post]
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.ConsumeRequest
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	// Cabecera y parámetro apuntan al buffer de fasthttp; se copian porque quedan guardados en el movimiento.
	key := utils.CopyString(strings.TrimSpace(c.Get(HeaderIdempotencyKey)))
	stockID := utils.CopyString(c.Params("stockId"))
	out, err := h.consume.ConsumeFromRequest(c.Context(), companyID, userID, stockID, key, in)
	if err != nil {
		return writeError(c, err)
	}
	if out.Replayed {
		return c.Status(fiber.StatusOK).JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Summary godoc
// @Summary      Vista agregada de un stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        stockId  path  string  true  "ID del stock"
// @Success      200  {object}  dto.StockSummaryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocks/{stockId}/summary [get]
func (h *InventoryHandler) Summary(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.stocks.Summary(c.Context(), companyID, c.Params("stockId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CriticalStocks godoc
// @Summary      Stocks en o bajo su umbral crítico
// @Description  Ordenados por déficit (umbral - cantidad total), el mayor primero.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.CriticalStockResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/stocks/critical [get]
func (h *InventoryHandler) CriticalStocks(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	list, err := h.stocks.CriticalStocks(c.Context(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":  len(list),
		"stocks": list,
	})
}

// ListMovements godoc
// @Summary      Historial de consumos de un stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        stockId  path   string  true   "ID del stock"
// @Param        limit    query  int     false  "Máximo 100 (default 20)"
// @Param        offset   query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/stocks/{stockId}/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	out, err := h.movements.List(c.Context(), companyID, c.Params("stockId"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetMovement godoc
// @Summary      Obtener un movimiento
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.ConsumeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.movements.Get(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
