package clock

import "time"

// Clock abstrae la hora actual para que la clasificación de vencimientos y las
// validaciones de fechas sean deterministas en los tests.
type Clock interface {
	Now() time.Time
}

// Real devuelve la hora del sistema.
type Real struct{}

// Now implementa Clock.
func (Real) Now() time.Time { return time.Now() }

// Fixed devuelve siempre el mismo instante.
type Fixed struct {
	At time.Time
}

// Now implementa Clock.
func (f Fixed) Now() time.Time { return f.At }

// Today trunca t a medianoche en su propia zona horaria.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
