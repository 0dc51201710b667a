package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// DocumentClassService catálogo de clases SII por modelo.
type DocumentClassService interface {
	ListForModel(ctx context.Context, model string) ([]dto.DocumentClassResponse, error)
}

// DocumentClassHandler maneja /api/document-classes.
type DocumentClassHandler struct {
	svc DocumentClassService
}

// NewDocumentClassHandler construye el handler.
func NewDocumentClassHandler(svc DocumentClassService) *DocumentClassHandler {
	return &DocumentClassHandler{svc: svc}
}

// modelAliases nombres cortos aceptados en ?model=.
var modelAliases = map[string]string{
	"invoice": entity.ETDModelInvoice,
	"picking": entity.ETDModelPicking,
}

// List clases admitidas por el modelo.
// GET /api/document-classes?model=invoice|picking
func (h *DocumentClassHandler) List(c *fiber.Ctx) error {
	model := c.Query("model", "invoice")
	if full, ok := modelAliases[model]; ok {
		model = full
	}
	classes, err := h.svc.ListForModel(c.Context(), model)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(classes)
}
