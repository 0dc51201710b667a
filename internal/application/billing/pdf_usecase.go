package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sii-etd-api/internal/domain"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
)

// PDFUseCase genera la representación impresa de una factura con su timbre PDF417.
type PDFUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	classes      ClassLookup
	barcode      BarcodeRenderer
	barcodeCfg   BarcodeConfig
	generator    InvoicePDFGenerator
	log          zerolog.Logger
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	classes ClassLookup,
	barcode BarcodeRenderer,
	barcodeCfg BarcodeConfig,
	generator InvoicePDFGenerator,
	log zerolog.Logger,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo:  invoiceRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		classes:      classes,
		barcode:      barcode,
		barcodeCfg:   barcodeCfg,
		generator:    generator,
		log:          log.With().Str("component", "billing.pdf").Logger(),
	}
}

// DownloadInvoicePDF genera el PDF de una factura validada.
//
// Retorna:
//   - domain.ErrNotFound      si la factura no existe.
//   - domain.ErrForbidden     si la factura no pertenece a la empresa del token.
//   - domain.ErrInvalidState  si la factura sigue en borrador.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, companyID, invoiceID string) ([]byte, string, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}
	if inv.State == entity.InvoiceStateDraft {
		return nil, "", fmt.Errorf("%w: la factura está en borrador", domain.ErrInvalidState)
	}

	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil || company == nil {
		return nil, "", fmt.Errorf("pdf: obtener empresa: %w", err)
	}
	customer, err := uc.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil || customer == nil {
		return nil, "", fmt.Errorf("pdf: obtener cliente: %w", err)
	}
	lines, err := uc.invoiceRepo.GetLines(ctx, inv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener líneas: %w", err)
	}
	class, err := uc.classes.GetByID(ctx, inv.ClassID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener clase: %w", err)
	}

	doc := &InvoicePrint{
		Invoice:  inv,
		Company:  company,
		Customer: customer,
		Class:    class,
		Lines:    lines,
	}
	if inv.SIIBarcode != "" {
		png, err := uc.barcode.Render(inv.SIIBarcode, uc.barcodeCfg.Ratio)
		if err != nil {
			uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("PDF sin timbre: falló la imagen PDF417")
		} else {
			doc.BarcodePNG = png
		}
	}

	pdfBytes, err := uc.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar: %w", err)
	}
	return pdfBytes, fileName(inv, class), nil
}

func fileName(inv *entity.Invoice, class *entity.DocumentClass) string {
	if class == nil || inv.Folio == 0 {
		return fmt.Sprintf("factura-%s.pdf", inv.ID)
	}
	return fmt.Sprintf("dte-%d-%d.pdf", class.Code, inv.Folio)
}
