package dto

// PickingMoveRequest movimiento del despacho.
type PickingMoveRequest struct {
	Description string `json:"description" validate:"required,max=80"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
}

// CreatePickingRequest cuerpo de creación de despacho.
type CreatePickingRequest struct {
	CustomerID         string               `json:"customer_id"`
	Name               string               `json:"name" validate:"required"`
	ClassID            string               `json:"class_id"`
	LocationDestUsage  string               `json:"location_dest_usage" validate:"required,oneof=customer internal supplier transit"`
	UseDocuments       bool                 `json:"use_documents"`
	DestinationAddress string               `json:"destination_address"`
	ScheduledDate      string               `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	Moves              []PickingMoveRequest `json:"moves" validate:"dive"`
}

// PickingMoveResponse movimiento en respuestas.
type PickingMoveResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
}

// PickingResponse despacho con campos SII.
type PickingResponse struct {
	ID                string                 `json:"id"`
	CompanyID         string                 `json:"company_id"`
	CustomerID        string                 `json:"customer_id,omitempty"`
	Name              string                 `json:"name"`
	State             string                 `json:"state"`
	Class             *DocumentClassResponse `json:"class,omitempty"`
	Folio             int64                  `json:"folio,omitempty"`
	LocationDestUsage string                 `json:"location_dest_usage"`
	UseDocuments      bool                   `json:"use_documents"`
	ScheduledDate     string                 `json:"scheduled_date"`
	SIIBarcode        string                 `json:"sii_barcode,omitempty"`
	ETDStatus         string                 `json:"etd_status,omitempty"`
	ETDError          string                 `json:"etd_error,omitempty"`
	Moves             []PickingMoveResponse  `json:"moves"`
}
