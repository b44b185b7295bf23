package inventory

import (
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostCalculator valoriza un consumo por lotes (servicio de dominio).
// Total = Σ(cantidad × precio unitario del lote); CostoPromedio = Total / Σ cantidades valorizadas.
// Las líneas de lotes sin precio no participan en ninguno de los dos.
func CostCalculator(lines []entity.MovementLine) (total, average decimal.Decimal) {
	total = decimal.Zero
	qty := decimal.Zero
	for _, l := range lines {
		if l.UnitPrice == nil {
			continue
		}
		q := decimal.NewFromInt(l.Quantity)
		total = total.Add(q.Mul(*l.UnitPrice))
		qty = qty.Add(q)
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return total, decimal.Zero
	}
	return total, total.Div(qty).Round(4)
}
