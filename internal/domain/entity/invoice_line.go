package entity

import "github.com/shopspring/decimal"

// InvoiceLine línea de detalle de una factura.
type InvoiceLine struct {
	ID          string
	InvoiceID   string
	Sequence    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal // 0.19 = IVA; cero = exenta
	Subtotal    decimal.Decimal
}

// TaxAmount impuesto de la línea.
func (l *InvoiceLine) TaxAmount() decimal.Decimal {
	return l.Subtotal.Mul(l.TaxRate).Round(0)
}

// InvoiceTax línea de impuesto agregada por tasa (account.invoice.tax).
type InvoiceTax struct {
	Rate   decimal.Decimal
	Base   decimal.Decimal
	Amount decimal.Decimal
}

// TaxLines agrupa las líneas gravadas por tasa. Líneas exentas no generan impuesto.
func TaxLines(lines []*InvoiceLine) []InvoiceTax {
	var out []InvoiceTax
	idx := make(map[string]int)
	for _, l := range lines {
		if !l.TaxRate.IsPositive() {
			continue
		}
		key := l.TaxRate.String()
		i, ok := idx[key]
		if !ok {
			out = append(out, InvoiceTax{Rate: l.TaxRate})
			i = len(out) - 1
			idx[key] = i
		}
		out[i].Base = out[i].Base.Add(l.Subtotal)
		out[i].Amount = out[i].Amount.Add(l.TaxAmount())
	}
	return out
}
