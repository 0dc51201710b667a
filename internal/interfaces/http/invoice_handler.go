package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
	"github.com/jhoicas/sii-etd-api/internal/domain"
)

// InvoiceService operaciones de facturas con campos SII.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, companyID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	UpdateLines(ctx context.Context, companyID, id string, in dto.UpdateInvoiceLinesRequest) (*dto.InvoiceResponse, error)
	ValidateInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error)
	RefundInvoices(ctx context.Context, companyID string, in dto.RefundRequest) ([]*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error)
	BarcodeImage(ctx context.Context, companyID, id string, ratio int) ([]byte, error)
}

// InvoicePDFService representación impresa.
type InvoicePDFService interface {
	DownloadInvoicePDF(ctx context.Context, companyID, invoiceID string) ([]byte, string, error)
}

// InvoiceHandler maneja las peticiones HTTP de facturación (protegido).
type InvoiceHandler struct {
	svc InvoiceService
	pdf InvoicePDFService
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc InvoiceService, pdf InvoicePDFService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, pdf: pdf}
}

// Create crea una factura en borrador con clase SII por defecto.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.CreateInvoice(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID factura con clase e imagen del timbre.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetInvoice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateLines reemplaza las líneas (recalcula clase exenta).
// PUT /api/invoices/:id/lines
func (h *InvoiceHandler) UpdateLines(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceLinesRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.UpdateLines(c.Context(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Validate valida la factura; la firma queda encolada.
// POST /api/invoices/:id/validate
func (h *InvoiceHandler) Validate(c *fiber.Ctx) error {
	out, err := h.svc.ValidateInvoice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if out.ETDStatus != "" {
		return c.Status(fiber.StatusAccepted).JSON(out)
	}
	return c.JSON(out)
}

// Refund emite la reversa de la factura de la ruta y de las indicadas en el cuerpo.
// POST /api/invoices/:id/refund
func (h *InvoiceHandler) Refund(c *fiber.Ctx) error {
	var in dto.RefundRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	in.InvoiceIDs = uniqueIDs(append([]string{c.Params("id")}, in.InvoiceIDs...))
	out, err := h.svc.RefundInvoices(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Barcode imagen PNG del timbre. El ancho en columnas no es configurable.
// GET /api/invoices/:id/barcode?ratio=3
func (h *InvoiceHandler) Barcode(c *fiber.Ctx) error {
	if c.Query("columns") != "" {
		return writeError(c, fmt.Errorf("%w: columns no es configurable, el ancho lo fija el codificador PDF417", domain.ErrInvalidInput))
	}
	png, err := h.svc.BarcodeImage(c.Context(), GetCompanyID(c), c.Params("id"), c.QueryInt("ratio"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// PDF representación impresa.
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *fiber.Ctx) error {
	out, name, err := h.pdf.DownloadInvoicePDF(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name))
	return c.Send(out)
}

// uniqueIDs quita repetidos y vacíos conservando el orden de aparición.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
