package inventory

import "time"

// DefaultAlertWindowDays ventana de alerta si la categoría no define una.
const DefaultAlertWindowDays = 30

const day = 24 * time.Hour

// ExpirationStatus banderas derivadas del vencimiento de un lote en un instante dado.
type ExpirationStatus struct {
	Expired             bool
	NearExpiration      bool
	DaysUntilExpiration *int // nil si el lote no vence; negativo si ya venció
}

// Classify es una función pura de (vencimiento, ventana de alerta, ahora):
//   - vencido: hay fecha y fecha < ahora.
//   - por vencer: hay fecha, no vencido y (fecha - ahora) <= ventana.
//
// Un lote sin fecha de vencimiento nunca se marca. Ventana <= 0 usa DefaultAlertWindowDays.
func Classify(expiration *time.Time, alertWindowDays int, now time.Time) ExpirationStatus {
	if expiration == nil {
		return ExpirationStatus{}
	}
	if alertWindowDays <= 0 {
		alertWindowDays = DefaultAlertWindowDays
	}
	remaining := expiration.Sub(now)
	days := int(remaining / day)
	st := ExpirationStatus{DaysUntilExpiration: &days}
	if expiration.Before(now) {
		st.Expired = true
		return st
	}
	st.NearExpiration = remaining <= time.Duration(alertWindowDays)*day
	return st
}

// IsExpired atajo de Classify para el filtro de elegibilidad.
func IsExpired(expiration *time.Time, now time.Time) bool {
	return expiration != nil && expiration.Before(now)
}
