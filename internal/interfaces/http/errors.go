package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/application/dto"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

// errorMappings tipo de error de dominio → estado HTTP y código de la respuesta.
var errorMappings = []errorMapping{
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrInvalidExpirationDate, fiber.StatusBadRequest, "INVALID_EXPIRATION_DATE"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrLotNotFound, fiber.StatusNotFound, "LOT_NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrLotNotEmpty, fiber.StatusConflict, "LOT_NOT_EMPTY"},
	{domain.ErrLotNotDeleted, fiber.StatusConflict, "LOT_NOT_DELETED"},
	{domain.ErrLotAlreadyConsumed, fiber.StatusConflict, "LOT_ALREADY_CONSUMED"},
	{domain.ErrConcurrentModification, fiber.StatusConflict, "CONCURRENT_MODIFICATION"},
	{domain.ErrIdempotencyConflict, fiber.StatusConflict, "IDEMPOTENCY_CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrAllocationMismatch, fiber.StatusUnprocessableEntity, "ALLOCATION_MISMATCH"},
	{domain.ErrDuplicateLotReference, fiber.StatusUnprocessableEntity, "DUPLICATE_LOT_REFERENCE"},
	{domain.ErrLotNotInStock, fiber.StatusUnprocessableEntity, "LOT_NOT_IN_STOCK"},
	{domain.ErrLotExpired, fiber.StatusUnprocessableEntity, "LOT_EXPIRED"},
}

// writeError traduce un error de caso de uso a dto.ErrorResponse.
// Los errores sin tipo de dominio se registran y se responden como 500 sin detalle.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	log.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
