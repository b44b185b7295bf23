package inventory

import (
	"math"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// toQuantity convierte una cantidad recibida por la API en unidades enteras.
// Rechaza cero, negativos, fracciones y valores fuera de rango.
func toQuantity(d decimal.Decimal, field string) (int64, error) {
	if !d.IsPositive() || !d.IsInteger() || d.GreaterThan(maxQuantity) {
		return 0, domain.Errorf(domain.ErrInvalidQuantity,
			"%s debe ser un entero positivo (recibido %s)", field, d.String())
	}
	return d.IntPart(), nil
}
