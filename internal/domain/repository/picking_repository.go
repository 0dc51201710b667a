package repository

import (
	"context"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// PickingRepository define el puerto de persistencia para Picking (incluye sus movimientos).
type PickingRepository interface {
	Create(ctx context.Context, picking *entity.Picking) error
	Update(ctx context.Context, picking *entity.Picking) error
	GetByID(ctx context.Context, id string) (*entity.Picking, error)
}
