package dto

import "github.com/shopspring/decimal"

// InvoiceLineRequest línea de factura. TaxRate en fracción (0.19) o porcentaje (19); cero = exenta.
type InvoiceLineRequest struct {
	Description string          `json:"description" validate:"required,max=80"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// CreateInvoiceRequest cuerpo de creación de factura.
// Sin ClassID la clase se asigna según tipo y política del cliente.
type CreateInvoiceRequest struct {
	CustomerID    string               `json:"customer_id" validate:"required"`
	Type          string               `json:"type" validate:"required,oneof=out_invoice out_refund in_invoice in_refund"`
	ClassID       string               `json:"class_id"`
	Date          string               `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod string               `json:"payment_method" validate:"omitempty,oneof=CH CF LT EF PE TC OT"`
	PaymentTerm   string               `json:"payment_term" validate:"omitempty,oneof=1 2 3"`
	Lines         []InvoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateInvoiceLinesRequest reemplaza las líneas de una factura en borrador.
type UpdateInvoiceLinesRequest struct {
	Lines []InvoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// RefundRequest emisión de notas de crédito/débito para una o más facturas.
type RefundRequest struct {
	InvoiceIDs  []string `json:"invoice_ids" validate:"omitempty,dive,required"`
	Date        string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string   `json:"description" validate:"max=80"`
}

// InvoiceLineResponse línea en respuestas.
type InvoiceLineResponse struct {
	ID          string          `json:"id"`
	Sequence    int             `json:"sequence"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// InvoiceResponse factura con campos SII.
type InvoiceResponse struct {
	ID            string                 `json:"id"`
	CompanyID     string                 `json:"company_id"`
	CustomerID    string                 `json:"customer_id"`
	CustomerName  string                 `json:"customer_name,omitempty"`
	Type          string                 `json:"type"`
	State         string                 `json:"state"`
	Class         *DocumentClassResponse `json:"class,omitempty"`
	Folio         int64                  `json:"folio,omitempty"`
	Date          string                 `json:"date"`
	NetTotal      decimal.Decimal        `json:"net_total"`
	ExemptTotal   decimal.Decimal        `json:"exempt_total"`
	TaxTotal      decimal.Decimal        `json:"tax_total"`
	GrandTotal    decimal.Decimal        `json:"grand_total"`
	PaymentMethod string                 `json:"payment_method,omitempty"`
	PaymentTerm   string                 `json:"payment_term"`
	SIIBarcode    string                 `json:"sii_barcode,omitempty"`
	SIIBarcodeImg string                 `json:"sii_barcode_img,omitempty"` // PNG en base64
	ETDStatus     string                 `json:"etd_status,omitempty"`
	ETDError      string                 `json:"etd_error,omitempty"`
	RefundOfID    string                 `json:"refund_of_id,omitempty"`
	Lines         []InvoiceLineResponse  `json:"lines"`
}
