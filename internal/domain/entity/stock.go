package entity

// Stock representa el stock de un artículo. Lo administra el resto del ERP; este módulo solo lo lee.
type Stock struct {
	ID                string
	CompanyID         string
	ArticleID         string
	ArticleName       string
	CategoryID        string // vacío si el artículo no tiene categoría
	Code              string
	CriticalThreshold int64
}

// StockSummary vista agregada de los lotes de un stock.
type StockSummary struct {
	StockID             string
	StockCode           string
	ArticleName         string
	TotalRemaining      int64
	LotCount            int
	ExpiredCount        int
	NearExpirationCount int
	CriticalThreshold   int64
	AlertWindowDays     int
}

// BelowCritical indica si el stock está en o por debajo del umbral crítico.
func (s StockSummary) BelowCritical() bool {
	return s.TotalRemaining <= s.CriticalThreshold
}
