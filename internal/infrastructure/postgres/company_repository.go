package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo empresas emisoras y su numeración de folios.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByID obtiene una empresa por ID con sus modelos ETD habilitados.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, name, rut, activity, address, email, resolution_number, resolution_date,
		       etd_models, created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	var resolutionDate *time.Time
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.RUT, &c.Activity, &c.Address, &c.Email, &c.ResolutionNumber, &resolutionDate,
		&c.ETDModels, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	if resolutionDate != nil {
		c.ResolutionDate = *resolutionDate
	}
	return &c, nil
}

// NextFolio reserva atómicamente el siguiente folio. El contador arranca en
// first y salta a first si el rango autorizado quedó por delante.
func (r *CompanyRepo) NextFolio(ctx context.Context, companyID string, code int, first int64) (int64, error) {
	if first < 1 {
		first = 1
	}
	query := `
		INSERT INTO company_folios (company_id, code, last_folio)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, code) DO UPDATE
		SET last_folio = GREATEST(company_folios.last_folio + 1, EXCLUDED.last_folio)
		RETURNING last_folio`
	var folio int64
	if err := r.q.QueryRow(ctx, query, companyID, code, first).Scan(&folio); err != nil {
		return 0, fmt.Errorf("next folio: %w", err)
	}
	return folio, nil
}
