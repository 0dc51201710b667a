package repository

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para Customer (partner).
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
