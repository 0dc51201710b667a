// Package sii reúne las reglas de negocio SII para facturas y despachos:
// clase por defecto, reclasificación exenta, clase inversa de notas y
// condiciones de firma.
package sii

import (
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

// reverseCodes clase del documento -> clase de la nota que lo revierte.
var reverseCodes = map[int]int{
	pkgsii.CodeFactura:                pkgsii.CodeNotaCredito,
	pkgsii.CodeFacturaElectronica:     pkgsii.CodeNotaCreditoElectronica,
	pkgsii.CodeBoleta:                 pkgsii.CodeNotaCredito,
	pkgsii.CodeBoletaElectronica:      pkgsii.CodeNotaCreditoElectronica,
	pkgsii.CodeNotaCredito:            pkgsii.CodeNotaDebito,
	pkgsii.CodeNotaCreditoElectronica: pkgsii.CodeNotaDebitoElectronica,
}

// exemptCodes clase afecta -> clase exenta equivalente.
var exemptCodes = map[int]int{
	pkgsii.CodeBoletaElectronica:  pkgsii.CodeBoletaExentaElectronica,
	pkgsii.CodeFacturaElectronica: pkgsii.CodeFacturaExentaElectronica,
}

// PickingClassCode clase asignada a todo despacho con partner.
const PickingClassCode = pkgsii.CodeGuiaDespachoElectronica

// ReverseCode devuelve la clase de la nota que revierte un documento de clase code.
// Códigos ausentes de la tabla (o cero) devuelven false.
func ReverseCode(code int) (int, bool) {
	if code == 0 {
		return 0, false
	}
	rev, ok := reverseCodes[code]
	return rev, ok
}

// ExemptCode devuelve la clase exenta equivalente para una factura sin impuestos.
func ExemptCode(code int) (int, bool) {
	rev, ok := exemptCodes[code]
	return rev, ok
}

// DefaultInvoiceClassCode clase de documento por defecto al crear una factura sin clase.
func DefaultInvoiceClassCode(invoiceType, partnerPolicy string) int {
	switch invoiceType {
	case entity.InvoiceTypeOutInvoice:
		if partnerPolicy == pkgsii.InvoicingPolicyTicket {
			return pkgsii.CodeBoletaElectronica
		}
	case entity.InvoiceTypeOutRefund:
		return pkgsii.CodeNotaCreditoElectronica
	}
	return pkgsii.CodeFacturaElectronica
}

// ClassDomain tipos de documento admitidos para el modelo. Modelos desconocidos devuelven nil.
func ClassDomain(model string) []string {
	switch model {
	case entity.ETDModelInvoice:
		return []string{
			pkgsii.DocumentTypeInvoice,
			pkgsii.DocumentTypeInvoiceIn,
			pkgsii.DocumentTypeDebitNote,
			pkgsii.DocumentTypeCreditNote,
		}
	case entity.ETDModelPicking:
		return []string{pkgsii.DocumentTypeStockPicking}
	}
	return nil
}

// ClassAllowed indica si la clase pertenece al dominio de clases del modelo.
func ClassAllowed(model string, class *entity.DocumentClass) bool {
	if class == nil {
		return false
	}
	for _, dt := range ClassDomain(model) {
		if dt == class.DocumentType {
			return true
		}
	}
	return false
}

// ShouldSignInvoice la factura debe firmarse tras validarse.
func ShouldSignInvoice(company *entity.Company, inv *entity.Invoice) bool {
	return company.SignsModel(entity.ETDModelInvoice) && inv.IsCustomerDocument()
}

// ShouldSignPicking el despacho debe firmarse tras completarse.
func ShouldSignPicking(company *entity.Company, p *entity.Picking) bool {
	return p.UseDocuments &&
		company.SignsModel(entity.ETDModelPicking) &&
		p.LocationDestUsage == entity.LocationUsageCustomer
}

// RefundType tipo del documento que revierte una factura del tipo indicado.
func RefundType(invoiceType string) (string, bool) {
	switch invoiceType {
	case entity.InvoiceTypeOutInvoice:
		return entity.InvoiceTypeOutRefund, true
	case entity.InvoiceTypeInInvoice:
		return entity.InvoiceTypeInRefund, true
	case entity.InvoiceTypeOutRefund:
		// La reversa de una nota de crédito es un cargo (nota de débito).
		return entity.InvoiceTypeOutInvoice, true
	case entity.InvoiceTypeInRefund:
		return entity.InvoiceTypeInInvoice, true
	}
	return "", false
}
