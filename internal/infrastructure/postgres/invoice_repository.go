package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (id, company_id, customer_id, type, state, class_id, folio, date,
		                      net_total, exempt_total, tax_total, grand_total,
		                      payment_method, payment_term, sii_barcode, etd_xml, etd_status, etd_error,
		                      refund_of_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.CustomerID, inv.Type, inv.State, nullIfEmpty(inv.ClassID), inv.Folio, inv.Date,
		inv.NetTotal, inv.ExemptTotal, inv.TaxTotal, inv.GrandTotal,
		inv.PaymentMethod, inv.PaymentTerm, nullIfEmpty(inv.SIIBarcode), nullIfEmpty(inv.ETDXML), inv.ETDStatus, nullIfEmpty(inv.ETDError),
		nullIfEmpty(inv.RefundOfID), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice already exists: %w", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update persiste estado, clase, totales y campos SII.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET state          = $2,
		    class_id       = $3,
		    folio          = $4,
		    net_total      = $5,
		    exempt_total   = $6,
		    tax_total      = $7,
		    grand_total    = $8,
		    payment_method = $9,
		    payment_term   = $10,
		    sii_barcode    = $11,
		    etd_xml        = $12,
		    etd_status     = $13,
		    etd_error      = $14,
		    updated_at     = $15
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.State, nullIfEmpty(inv.ClassID), inv.Folio,
		inv.NetTotal, inv.ExemptTotal, inv.TaxTotal, inv.GrandTotal,
		inv.PaymentMethod, inv.PaymentTerm,
		nullIfEmpty(inv.SIIBarcode), nullIfEmpty(inv.ETDXML), inv.ETDStatus, nullIfEmpty(inv.ETDError),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice %s: no encontrada", inv.ID)
	}
	return nil
}

// GetByID obtiene una factura por ID; nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `
		SELECT id, company_id, customer_id, type, state, class_id, folio, date,
		       net_total, exempt_total, tax_total, grand_total,
		       payment_method, payment_term, sii_barcode, etd_xml, etd_status, etd_error,
		       refund_of_id, created_at, updated_at
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	var classID, barcode, xml, etdErr, refundOf *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Type, &inv.State, &classID, &inv.Folio, &inv.Date,
		&inv.NetTotal, &inv.ExemptTotal, &inv.TaxTotal, &inv.GrandTotal,
		&inv.PaymentMethod, &inv.PaymentTerm, &barcode, &xml, &inv.ETDStatus, &etdErr,
		&refundOf, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.ClassID = derefStr(classID)
	inv.SIIBarcode = derefStr(barcode)
	inv.ETDXML = derefStr(xml)
	inv.ETDError = derefStr(etdErr)
	inv.RefundOfID = derefStr(refundOf)
	return &inv, nil
}

// ReplaceLines borra e inserta las líneas de la factura. Usar dentro de una tx.
func (r *InvoiceRepo) ReplaceLines(ctx context.Context, invoiceID string, lines []*entity.InvoiceLine) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	query := `
		INSERT INTO invoice_lines (id, invoice_id, sequence, description, quantity, unit_price, tax_rate, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, l := range lines {
		if _, err := r.q.Exec(ctx, query,
			l.ID, invoiceID, l.Sequence, l.Description, l.Quantity, l.UnitPrice, l.TaxRate, l.Subtotal,
		); err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return nil
}

// GetLines líneas de la factura ordenadas por secuencia.
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, sequence, description, quantity, unit_price, tax_rate, subtotal
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY sequence, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var out []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Sequence, &l.Description, &l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
