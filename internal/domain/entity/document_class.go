package entity

// DocumentClass tipo de documento tributario SII (sii.document.class).
type DocumentClass struct {
	ID           string
	Code         int // código SII (33, 39, 52, 61, ...)
	Name         string
	DocumentType string // invoice, invoice_in, debit_note, credit_note, stock_picking
	Electronic   bool
	Active       bool
}
