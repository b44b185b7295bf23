package entity

// Category representa una categoría de artículos con su política de alerta de vencimiento.
type Category struct {
	ID              string
	CompanyID       string
	Name            string
	AlertWindowDays *int // nil = usar el valor por defecto de configuración
}

// AlertWindow devuelve la ventana de alerta en días, o def si la categoría no la define.
func (c *Category) AlertWindow(def int) int {
	if c == nil || c.AlertWindowDays == nil || *c.AlertWindowDays <= 0 {
		return def
	}
	return *c.AlertWindowDays
}
