package repository

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// NextFolio reserva el siguiente folio para el código de documento. La
	// numeración nunca queda por debajo de first (inicio del rango CAF).
	NextFolio(ctx context.Context, companyID string, code int, first int64) (int64, error)
}
