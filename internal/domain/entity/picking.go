package entity

import "time"

// Estados del despacho.
const (
	PickingStateDraft    = "draft"
	PickingStateAssigned = "assigned"
	PickingStateDone     = "done"
	PickingStateCancel   = "cancel"
)

// Uso de la ubicación de destino.
const (
	LocationUsageCustomer = "customer"
	LocationUsageInternal = "internal"
	LocationUsageSupplier = "supplier"
	LocationUsageTransit  = "transit"
)

// Picking representa un despacho de bodega (stock.picking) emisor de guía de despacho.
type Picking struct {
	ID                 string
	CompanyID          string
	CustomerID         string // vacío = sin partner
	Name               string
	State              string
	ClassID            string
	Folio              int64
	LocationDestUsage  string // ver LocationUsage*
	UseDocuments       bool   // el despacho emite documento tributario
	DestinationAddress string
	SIIBarcode         string
	ETDXML             string
	ETDStatus          string
	ETDError           string
	ScheduledDate      time.Time
	DoneAt             *time.Time
	Moves              []*PickingMove
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PickingMove movimiento (producto y cantidad) de un despacho.
type PickingMove struct {
	ID          string
	PickingID   string
	Description string
	Quantity    int64
}
