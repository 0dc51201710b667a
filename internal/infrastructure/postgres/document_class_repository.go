package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
)

var _ repository.DocumentClassRepository = (*DocumentClassRepo)(nil)

// DocumentClassRepo catálogo de clases de documento SII.
type DocumentClassRepo struct {
	q Querier
}

// NewDocumentClassRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentClassRepository(q Querier) *DocumentClassRepo {
	return &DocumentClassRepo{q: q}
}

const documentClassColumns = `id, code, name, document_type, electronic, active`

// GetByID obtiene una clase por ID (activa o no).
func (r *DocumentClassRepo) GetByID(ctx context.Context, id string) (*entity.DocumentClass, error) {
	var c entity.DocumentClass
	err := r.q.QueryRow(ctx, `SELECT `+documentClassColumns+` FROM document_classes WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.DocumentType, &c.Electronic, &c.Active)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document class: %w", err)
	}
	return &c, nil
}

// FindOne primera clase activa que cumple el filtro (menor código, luego ID).
func (r *DocumentClassRepo) FindOne(ctx context.Context, f repository.DocumentClassFilter) (*entity.DocumentClass, error) {
	classes, err := r.search(ctx, f, 1)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, nil
	}
	return classes[0], nil
}

// Search clases activas que cumplen el filtro.
func (r *DocumentClassRepo) Search(ctx context.Context, f repository.DocumentClassFilter) ([]*entity.DocumentClass, error) {
	return r.search(ctx, f, 0)
}

func (r *DocumentClassRepo) search(ctx context.Context, f repository.DocumentClassFilter, limit int) ([]*entity.DocumentClass, error) {
	where := []string{"active"}
	var args []any
	if f.Code != 0 {
		args = append(args, f.Code)
		where = append(where, fmt.Sprintf("code = $%d", len(args)))
	}
	if len(f.DocumentTypes) > 0 {
		args = append(args, f.DocumentTypes)
		where = append(where, fmt.Sprintf("document_type = ANY($%d)", len(args)))
	}
	query := `SELECT ` + documentClassColumns + ` FROM document_classes WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY code, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search document classes: %w", err)
	}
	defer rows.Close()
	var out []*entity.DocumentClass
	for rows.Next() {
		var c entity.DocumentClass
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.DocumentType, &c.Electronic, &c.Active); err != nil {
			return nil, fmt.Errorf("scan document class: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
