package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Cada uno identifica un tipo de fallo;
// el detalle legible viaja en *Error.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrDuplicate    = errors.New("recurso duplicado")

	ErrInvalidQuantity        = errors.New("cantidad inválida")
	ErrInvalidExpirationDate  = errors.New("fecha de vencimiento inválida")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrAllocationMismatch     = errors.New("la asignación manual no coincide con la cantidad solicitada")
	ErrDuplicateLotReference  = errors.New("lote referenciado más de una vez")
	ErrLotNotFound            = errors.New("lote no encontrado")
	ErrLotNotInStock          = errors.New("el lote no pertenece al stock")
	ErrLotNotEmpty            = errors.New("el lote aún tiene cantidad restante")
	ErrLotNotDeleted          = errors.New("el lote no está eliminado")
	ErrLotAlreadyConsumed     = errors.New("el lote ya tiene consumos")
	ErrLotExpired             = errors.New("el lote está vencido")
	ErrConcurrentModification = errors.New("el lote fue modificado por otra operación")
	ErrIdempotencyConflict    = errors.New("solicitud idempotente en curso")
)

// Error asocia un tipo de error de dominio con un mensaje para el llamador.
// errors.Is(err, domain.ErrX) funciona a través de Unwrap.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf construye un *Error del tipo indicado.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable indica si el error es transitorio y la operación puede repetirse replanificando.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
