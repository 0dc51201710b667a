package billing

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
)

// TxRunner ejecuta una función dentro de una transacción con los repositorios atados a ella.
type TxRunner interface {
	RunInvoices(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error
	RunValidation(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository, companyRepo repository.CompanyRepository) error) error
}

// FolioRanges primer folio autorizado por los CAF cargados para un código.
type FolioRanges interface {
	FirstFolio(code int) int64
}

// ClassLookup resolución de clases SII. FindByCode devuelve nil si no hay coincidencia.
type ClassLookup interface {
	FindByCode(ctx context.Context, code int, documentTypes ...string) *entity.DocumentClass
	GetByID(ctx context.Context, id string) (*entity.DocumentClass, error)
}

// SignQueue cola de trabajos diferidos de firma.
type SignQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// BarcodeRenderer genera la imagen PDF417 del timbre.
type BarcodeRenderer interface {
	Render(payload string, ratio int) ([]byte, error)
	RenderBase64(payload string, ratio int) (string, error)
}

// BarcodeConfig parámetros por defecto del timbre impreso. La cantidad de
// columnas la decide el codificador según el largo del TED.
type BarcodeConfig struct {
	Ratio int
}

// InvoicePrint datos para la representación impresa.
type InvoicePrint struct {
	Invoice    *entity.Invoice
	Company    *entity.Company
	Customer   *entity.Customer
	Class      *entity.DocumentClass
	Lines      []*entity.InvoiceLine
	BarcodePNG []byte // vacío si el documento no tiene timbre
}

// InvoicePDFGenerator genera el PDF de la factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc *InvoicePrint) ([]byte, error)
}
