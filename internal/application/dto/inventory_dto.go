package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout formato de las fechas de vencimiento (solo fecha, sin hora).
const DateLayout = "2006-01-02"

// ReceiveLotRequest body para POST /api/stocks/{stockId}/lots.
// Las cantidades llegan como decimal para poder rechazar valores no enteros con INVALID_QUANTITY.
type ReceiveLotRequest struct {
	QuantityInitial decimal.Decimal  `json:"quantity_initial"`
	DateEntered     *time.Time       `json:"date_entered,omitempty"`
	DateExpiration  *string          `json:"date_expiration,omitempty" validate:"omitempty,datetime=2006-01-02"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	Supplier        string           `json:"supplier,omitempty" validate:"max=255"`
	LotNumber       string           `json:"lot_number,omitempty" validate:"max=100"`
	Comment         string           `json:"comment,omitempty" validate:"max=1000"`
}

// UpdateLotRequest body para PUT /api/lots/{id}. Campos nil no se modifican;
// date_expiration = "" elimina el vencimiento.
type UpdateLotRequest struct {
	QuantityInitial *decimal.Decimal `json:"quantity_initial,omitempty"`
	DateExpiration  *string          `json:"date_expiration,omitempty" validate:"omitempty,datetime=2006-01-02"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	Supplier        *string          `json:"supplier,omitempty" validate:"omitempty,max=255"`
	LotNumber       *string          `json:"lot_number,omitempty" validate:"omitempty,max=100"`
	Comment         *string          `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// LotResponse lote con sus banderas de vencimiento calculadas al momento de la consulta.
type LotResponse struct {
	ID                  string           `json:"id"`
	Code                string           `json:"code"`
	StockID             string           `json:"stock_id"`
	LotNumber           string           `json:"lot_number,omitempty"`
	QuantityInitial     int64            `json:"quantity_initial"`
	QuantityRemaining   int64            `json:"quantity_remaining"`
	DateEntered         time.Time        `json:"date_entered"`
	DateExpiration      *string          `json:"date_expiration"`
	UnitPrice           *decimal.Decimal `json:"unit_price,omitempty"`
	Supplier            string           `json:"supplier,omitempty"`
	Comment             string           `json:"comment,omitempty"`
	State               string           `json:"state"`
	DeletedAt           *time.Time       `json:"deleted_at,omitempty"`
	IsExpired           bool             `json:"is_expired"`
	IsNearExpiration    bool             `json:"is_near_expiration"`
	DaysUntilExpiration *int             `json:"days_until_expiration,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// LotListResponse listado de lotes de un stock.
type LotListResponse struct {
	StockID string        `json:"stock_id"`
	Total   int           `json:"total"`
	Items   []LotResponse `json:"items"`
}

// ManualLotRequest par (lote, cantidad) de un retiro manual.
type ManualLotRequest struct {
	LotID    string          `json:"lot_id" validate:"required,uuid"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ConsumeRequest body para POST /api/stocks/{stockId}/consume.
type ConsumeRequest struct {
	Quantity   decimal.Decimal    `json:"quantity"`
	Method     string             `json:"method" validate:"required,oneof=fifo fefo manual"`
	Motif      string             `json:"motif,omitempty" validate:"max=500"`
	ManualLots []ManualLotRequest `json:"manual_lots,omitempty" validate:"required_if=Method manual,dive"`
}

// LotUsage cantidad consumida de un lote.
type LotUsage struct {
	LotID    string `json:"lot_id"`
	LotCode  string `json:"lot_code"`
	Quantity int64  `json:"quantity"`
}

// ConsumeResponse resumen del movimiento generado por un consumo.
type ConsumeResponse struct {
	MovementID      string          `json:"movement_id"`
	StockID         string          `json:"stock_id"`
	Method          string          `json:"method"`
	TotalConsumed   int64           `json:"total_consumed"`
	LotsUsed        []LotUsage      `json:"lots_used"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
	Motif           string          `json:"motif,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CreatedBy       string          `json:"created_by,omitempty"`
	Replayed        bool            `json:"replayed,omitempty"` // true si se devolvió un movimiento ya registrado (Idempotency-Key)
}

// MovementListResponse historial paginado de consumos de un stock.
type MovementListResponse struct {
	Items []ConsumeResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// StockSummaryResponse vista agregada de un stock.
type StockSummaryResponse struct {
	StockID             string `json:"stock_id"`
	StockCode           string `json:"stock_code"`
	ArticleName         string `json:"article_name"`
	TotalRemaining      int64  `json:"total_remaining"`
	LotCount            int    `json:"lot_count"`
	ExpiredCount        int    `json:"expired_count"`
	NearExpirationCount int    `json:"near_expiration_count"`
	CriticalThreshold   int64  `json:"critical_threshold"`
	BelowCritical       bool   `json:"below_critical"`
	AlertWindowDays     int    `json:"alert_window_days"`
}

// CriticalStockResponse stock en o por debajo de su umbral crítico.
type CriticalStockResponse struct {
	StockSummaryResponse
	Deficit  int64 `json:"deficit"`  // CriticalThreshold - TotalRemaining
	Priority int   `json:"priority"` // 1 = más urgente
}
