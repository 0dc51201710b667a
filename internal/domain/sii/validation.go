package sii

import (
	"errors"
	"fmt"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

// ErrInvalidInvoice agrupa errores de validación de factura.
var ErrInvalidInvoice = errors.New("factura inválida para SII")

// ValidateInvoiceFields valida medio y forma de pago contra los catálogos SII.
// Medio de pago vacío es válido (campo opcional).
func ValidateInvoiceFields(inv *entity.Invoice) error {
	if inv == nil {
		return fmt.Errorf("%w: factura nula", ErrInvalidInvoice)
	}
	var errs []error
	if inv.PaymentMethod != "" {
		if _, ok := pkgsii.PaymentMethods[inv.PaymentMethod]; !ok {
			errs = append(errs, fmt.Errorf("medio de pago desconocido: %q", inv.PaymentMethod))
		}
	}
	if _, ok := pkgsii.PaymentTerms[inv.PaymentTerm]; !ok {
		errs = append(errs, fmt.Errorf("forma de pago desconocida: %q", inv.PaymentTerm))
	}
	switch inv.Type {
	case entity.InvoiceTypeOutInvoice, entity.InvoiceTypeOutRefund,
		entity.InvoiceTypeInInvoice, entity.InvoiceTypeInRefund:
	default:
		errs = append(errs, fmt.Errorf("tipo de factura desconocido: %q", inv.Type))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidInvoice}, errs...)...)
	}
	return nil
}
