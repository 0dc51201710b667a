package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de factura.
const (
	InvoiceTypeOutInvoice = "out_invoice" // factura de venta
	InvoiceTypeOutRefund  = "out_refund"  // nota de crédito de venta
	InvoiceTypeInInvoice  = "in_invoice"  // factura de proveedor
	InvoiceTypeInRefund   = "in_refund"   // nota de crédito de proveedor
)

// Estados de la factura.
const (
	InvoiceStateDraft  = "draft"
	InvoiceStateOpen   = "open"
	InvoiceStateCancel = "cancel"
)

// Estados del DTE ante el SII.
const (
	ETDStatusNone    = ""        // aún no se solicita firma
	ETDStatusPending = "PENDING" // trabajo de firma encolado
	ETDStatusSigned  = "SIGNED"  // TED generado y almacenado
	ETDStatusError   = "ERROR"   // falló la generación o firma
)

// Invoice representa la cabecera de una factura con campos SII.
type Invoice struct {
	ID            string
	CompanyID     string
	CustomerID    string
	Type          string // ver InvoiceType*
	State         string // ver InvoiceState*
	ClassID       string // clase de documento SII; vacío = sin clase
	Folio         int64  // número asignado por el CAF
	Date          time.Time
	NetTotal      decimal.Decimal
	ExemptTotal   decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
	PaymentMethod string // medio de pago (CH, CF, LT, EF, PE, TC, OT)
	PaymentTerm   string // forma de pago (1, 2, 3)
	SIIBarcode    string // TED serializado; solo lo escribe la firma
	ETDXML        string // DTE firmado
	ETDStatus     string
	ETDError      string
	RefundOfID    string // factura de origen para notas de crédito/débito
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsCustomerDocument indica si la factura es de venta (factura o nota de crédito).
func (i *Invoice) IsCustomerDocument() bool {
	return i.Type == InvoiceTypeOutInvoice || i.Type == InvoiceTypeOutRefund
}
