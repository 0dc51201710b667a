package repository

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// DocumentClassFilter filtro de búsqueda de clases (equivalente al domain de búsqueda).
// Campos vacíos no filtran.
type DocumentClassFilter struct {
	Code          int
	DocumentTypes []string
}

// DocumentClassRepository define el puerto de persistencia para DocumentClass.
type DocumentClassRepository interface {
	GetByID(ctx context.Context, id string) (*entity.DocumentClass, error)
	// FindOne devuelve la primera clase activa que cumple el filtro o nil si no hay coincidencias.
	FindOne(ctx context.Context, f DocumentClassFilter) (*entity.DocumentClass, error)
	Search(ctx context.Context, f DocumentClassFilter) ([]*entity.DocumentClass, error)
}
