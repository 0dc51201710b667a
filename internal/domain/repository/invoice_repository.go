package repository

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update persiste cabecera, clase, estado y campos SII.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	ReplaceLines(ctx context.Context, invoiceID string, lines []*entity.InvoiceLine) error
	GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error)
}
