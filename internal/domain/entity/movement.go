package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de retiro de stock.
const (
	MethodFIFO   = "fifo"
	MethodFEFO   = "fefo"
	MethodManual = "manual"
)

// IsValidMethod indica si m es un método de retiro soportado.
func IsValidMethod(m string) bool {
	switch m {
	case MethodFIFO, MethodFEFO, MethodManual:
		return true
	}
	return false
}

// MovementLine par (lote, cantidad) efectivamente aplicado.
type MovementLine struct {
	LotID     string           `json:"lot_id"`
	LotCode   string           `json:"lot_code"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Movement registro de auditoría de un consumo. Se escribe una vez y no se modifica.
type Movement struct {
	ID              string
	CompanyID       string
	StockID         string
	Method          string
	TotalQuantity   int64
	Motif           string
	Lines           []MovementLine
	TotalCost       decimal.Decimal
	AverageUnitCost decimal.Decimal
	IdempotencyKey  string
	CreatedAt       time.Time
	CreatedBy       string
}
