package entity

import "time"

// Customer representa un cliente/proveedor de la empresa (res.partner).
type Customer struct {
	ID              string
	CompanyID       string
	Name            string
	RUT             string
	Activity        string // giro del receptor
	Email           string
	InvoicingPolicy string // invoice, ticket, eguide (ver pkg/sii)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
