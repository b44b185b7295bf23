package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotState estado explícito del ciclo de vida de un lote.
type LotState string

const (
	LotStateActive     LotState = "active"
	LotStateTombstoned LotState = "tombstoned"
)

// Lot representa una cantidad recibida de un artículo, con su propio vencimiento y costo.
type Lot struct {
	ID                string
	CompanyID         string
	StockID           string
	Code              string // código legible, único por empresa
	LotNumber         string // número de lote del proveedor (texto libre, no único)
	QuantityInitial   int64
	QuantityRemaining int64
	DateEntered       time.Time
	DateExpiration    *time.Time // nil = no vence
	UnitPrice         *decimal.Decimal
	Supplier          string
	Comment           string
	State             LotState
	DeletedAt         *time.Time
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsTombstoned indica si el lote está eliminado lógicamente.
func (l *Lot) IsTombstoned() bool {
	return l.State == LotStateTombstoned
}

// HasRemaining indica si queda cantidad disponible.
func (l *Lot) HasRemaining() bool {
	return l.QuantityRemaining > 0
}

// IsUntouched indica que el lote no ha tenido consumos.
func (l *Lot) IsUntouched() bool {
	return l.QuantityRemaining == l.QuantityInitial
}

// Tombstone marca el lote como eliminado.
func (l *Lot) Tombstone(at time.Time) {
	l.State = LotStateTombstoned
	l.DeletedAt = &at
	l.UpdatedAt = at
}

// Revive limpia la marca de eliminación.
func (l *Lot) Revive(at time.Time) {
	l.State = LotStateActive
	l.DeletedAt = nil
	l.UpdatedAt = at
}
