package stock

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
)

// ClassLookup resolución de clases SII. FindByCode devuelve nil si no hay coincidencia.
type ClassLookup interface {
	FindByCode(ctx context.Context, code int, documentTypes ...string) *entity.DocumentClass
	GetByID(ctx context.Context, id string) (*entity.DocumentClass, error)
}

// SignQueue cola de trabajos diferidos de firma.
type SignQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// FolioRanges primer folio autorizado por los CAF cargados para un código.
type FolioRanges interface {
	FirstFolio(code int) int64
}
