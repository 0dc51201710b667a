package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
)

var _ repository.PickingRepository = (*PickingRepo)(nil)

// PickingRepo despachos y sus movimientos.
type PickingRepo struct {
	q Querier
}

// NewPickingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPickingRepository(q Querier) *PickingRepo {
	return &PickingRepo{q: q}
}

// beginner pool o tx; sobre una tx, Begin abre un savepoint.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Create persiste el despacho y sus movimientos en una sola transacción.
func (r *PickingRepo) Create(ctx context.Context, p *entity.Picking) error {
	b, ok := r.q.(beginner)
	if !ok {
		return r.create(ctx, r.q, p)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := r.create(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *PickingRepo) create(ctx context.Context, q Querier, p *entity.Picking) error {
	query := `
		INSERT INTO pickings (id, company_id, customer_id, name, state, class_id, folio, location_dest_usage,
		                      use_documents, destination_address, sii_barcode, etd_xml, etd_status, etd_error,
		                      scheduled_date, done_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := q.Exec(ctx, query,
		p.ID, p.CompanyID, nullIfEmpty(p.CustomerID), p.Name, p.State, nullIfEmpty(p.ClassID), p.Folio, p.LocationDestUsage,
		p.UseDocuments, p.DestinationAddress, nullIfEmpty(p.SIIBarcode), nullIfEmpty(p.ETDXML), p.ETDStatus, nullIfEmpty(p.ETDError),
		p.ScheduledDate, p.DoneAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("picking already exists: %w", err)
		}
		return fmt.Errorf("insert picking: %w", err)
	}
	for _, m := range p.Moves {
		if _, err := q.Exec(ctx,
			`INSERT INTO picking_moves (id, picking_id, description, quantity) VALUES ($1, $2, $3, $4)`,
			m.ID, p.ID, m.Description, m.Quantity,
		); err != nil {
			return fmt.Errorf("insert picking move: %w", err)
		}
	}
	return nil
}

// Update persiste estado, clase, folio y campos SII. Los movimientos no cambian.
func (r *PickingRepo) Update(ctx context.Context, p *entity.Picking) error {
	query := `
		UPDATE pickings
		SET state       = $2,
		    class_id    = $3,
		    folio       = $4,
		    sii_barcode = $5,
		    etd_xml     = $6,
		    etd_status  = $7,
		    etd_error   = $8,
		    done_at     = $9,
		    updated_at  = $10
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.State, nullIfEmpty(p.ClassID), p.Folio,
		nullIfEmpty(p.SIIBarcode), nullIfEmpty(p.ETDXML), p.ETDStatus, nullIfEmpty(p.ETDError),
		p.DoneAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update picking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update picking %s: no encontrado", p.ID)
	}
	return nil
}

// GetByID obtiene el despacho con sus movimientos; nil si no existe.
func (r *PickingRepo) GetByID(ctx context.Context, id string) (*entity.Picking, error) {
	query := `
		SELECT id, company_id, customer_id, name, state, class_id, folio, location_dest_usage,
		       use_documents, destination_address, sii_barcode, etd_xml, etd_status, etd_error,
		       scheduled_date, done_at, created_at, updated_at
		FROM pickings WHERE id = $1`
	var p entity.Picking
	var customerID, classID, barcode, xml, etdErr *string
	var doneAt *time.Time
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.CompanyID, &customerID, &p.Name, &p.State, &classID, &p.Folio, &p.LocationDestUsage,
		&p.UseDocuments, &p.DestinationAddress, &barcode, &xml, &p.ETDStatus, &etdErr,
		&p.ScheduledDate, &doneAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get picking: %w", err)
	}
	p.CustomerID = derefStr(customerID)
	p.ClassID = derefStr(classID)
	p.SIIBarcode = derefStr(barcode)
	p.ETDXML = derefStr(xml)
	p.ETDError = derefStr(etdErr)
	p.DoneAt = doneAt

	rows, err := r.q.Query(ctx, `SELECT id, picking_id, description, quantity FROM picking_moves WHERE picking_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list picking moves: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m entity.PickingMove
		if err := rows.Scan(&m.ID, &m.PickingID, &m.Description, &m.Quantity); err != nil {
			return nil, fmt.Errorf("scan picking move: %w", err)
		}
		p.Moves = append(p.Moves, &m)
	}
	return &p, rows.Err()
}
