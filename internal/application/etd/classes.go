// Package etd reúne los servicios comunes a todo documento tributario
// electrónico: búsqueda de clases SII y firma diferida del documento.
package etd

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
	"github.com/jhoicas/sii-etd-api/internal/domain"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/domain/sii"
)

// DocumentClassService resuelve clases de documento SII.
type DocumentClassService struct {
	repo repository.DocumentClassRepository
	log  zerolog.Logger
}

// NewDocumentClassService construye el servicio.
func NewDocumentClassService(repo repository.DocumentClassRepository, log zerolog.Logger) *DocumentClassService {
	return &DocumentClassService{repo: repo, log: log.With().Str("component", "etd.classes").Logger()}
}

// FindByCode devuelve la primera clase con el código (y tipo de documento si se indica).
// Si no existe, o la búsqueda falla, devuelve nil: el documento queda sin clase.
func (s *DocumentClassService) FindByCode(ctx context.Context, code int, documentTypes ...string) *entity.DocumentClass {
	if code == 0 {
		return nil
	}
	class, err := s.repo.FindOne(ctx, repository.DocumentClassFilter{Code: code, DocumentTypes: documentTypes})
	if err != nil {
		s.log.Warn().Err(err).Int("code", code).Msg("búsqueda de clase SII falló")
		return nil
	}
	return class
}

// GetByID devuelve la clase o nil si no existe.
func (s *DocumentClassService) GetByID(ctx context.Context, id string) (*entity.DocumentClass, error) {
	if id == "" {
		return nil, nil
	}
	return s.repo.GetByID(ctx, id)
}

// ListForModel clases admitidas por el modelo (account.invoice, stock.picking).
func (s *DocumentClassService) ListForModel(ctx context.Context, model string) ([]dto.DocumentClassResponse, error) {
	types := sii.ClassDomain(model)
	if types == nil {
		return nil, domain.ErrInvalidInput
	}
	classes, err := s.repo.Search(ctx, repository.DocumentClassFilter{DocumentTypes: types})
	if err != nil {
		return nil, err
	}
	out := make([]dto.DocumentClassResponse, 0, len(classes))
	for _, c := range classes {
		out = append(out, *ToClassResponse(c))
	}
	return out, nil
}

// ToClassResponse convierte la entidad; nil devuelve nil.
func ToClassResponse(c *entity.DocumentClass) *dto.DocumentClassResponse {
	if c == nil {
		return nil
	}
	return &dto.DocumentClassResponse{
		ID:           c.ID,
		Code:         c.Code,
		Name:         c.Name,
		DocumentType: c.DocumentType,
		Electronic:   c.Electronic,
	}
}
