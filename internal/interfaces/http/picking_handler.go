package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
)

// PickingService operaciones de despachos.
type PickingService interface {
	CreatePicking(ctx context.Context, companyID string, in dto.CreatePickingRequest) (*dto.PickingResponse, error)
	GetPicking(ctx context.Context, companyID, id string) (*dto.PickingResponse, error)
	DonePicking(ctx context.Context, companyID, id string) (*dto.PickingResponse, error)
}

// PickingHandler maneja /api/pickings (protegido).
type PickingHandler struct {
	svc PickingService
}

// NewPickingHandler construye el handler.
func NewPickingHandler(svc PickingService) *PickingHandler {
	return &PickingHandler{svc: svc}
}

// Create POST /api/pickings
func (h *PickingHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePickingRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.CreatePicking(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID GET /api/pickings/:id
func (h *PickingHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetPicking(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Done completa el despacho; la firma de la guía queda encolada.
// POST /api/pickings/:id/done
func (h *PickingHandler) Done(c *fiber.Ctx) error {
	out, err := h.svc.DonePicking(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if out.ETDStatus != "" {
		return c.Status(fiber.StatusAccepted).JSON(out)
	}
	return c.JSON(out)
}
