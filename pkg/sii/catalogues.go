// Package sii contiene catálogos y utilidades alineados a las exigencias del
// Servicio de Impuestos Internos (Chile) para Documentos Tributarios Electrónicos.
package sii

// =============================================================================
// Tipos de documento tributario (código SII del documento)
// =============================================================================

const (
	CodeFactura                  = 30 // Factura
	CodeFacturaElectronica       = 33 // Factura Electrónica
	CodeFacturaExentaElectronica = 34 // Factura No Afecta o Exenta Electrónica
	CodeBoleta                   = 35 // Boleta
	CodeBoletaElectronica        = 39 // Boleta Electrónica
	CodeBoletaExentaElectronica  = 41 // Boleta Exenta Electrónica
	CodeGuiaDespachoElectronica  = 52 // Guía de Despacho Electrónica
	CodeNotaDebito               = 55 // Nota de Débito
	CodeNotaDebitoElectronica    = 56 // Nota de Débito Electrónica
	CodeNotaCredito              = 60 // Nota de Crédito
	CodeNotaCreditoElectronica   = 61 // Nota de Crédito Electrónica
)

// DocumentClassNames nombres oficiales por código.
var DocumentClassNames = map[int]string{
	CodeFactura:                  "Factura",
	CodeFacturaElectronica:       "Factura Electrónica",
	CodeFacturaExentaElectronica: "Factura No Afecta o Exenta Electrónica",
	CodeBoleta:                   "Boleta",
	CodeBoletaElectronica:        "Boleta Electrónica",
	CodeBoletaExentaElectronica:  "Boleta Exenta Electrónica",
	CodeGuiaDespachoElectronica:  "Guía de Despacho Electrónica",
	CodeNotaDebito:               "Nota de Débito",
	CodeNotaDebitoElectronica:    "Nota de Débito Electrónica",
	CodeNotaCredito:              "Nota de Crédito",
	CodeNotaCreditoElectronica:   "Nota de Crédito Electrónica",
}

// =============================================================================
// Tipos de documento (dominio de clases por modelo)
// =============================================================================

const (
	DocumentTypeInvoice      = "invoice"
	DocumentTypeInvoiceIn    = "invoice_in"
	DocumentTypeDebitNote    = "debit_note"
	DocumentTypeCreditNote   = "credit_note"
	DocumentTypeStockPicking = "stock_picking"
)

// =============================================================================
// Medio de pago (MedioPago)
// =============================================================================

const (
	PaymentMethodCheque        = "CH"
	PaymentMethodChequeAFecha  = "CF"
	PaymentMethodLetra         = "LT"
	PaymentMethodEfectivo      = "EF"
	PaymentMethodPagoCtaCte    = "PE"
	PaymentMethodTarjetaCredit = "TC"
	PaymentMethodOtro          = "OT"
)

// PaymentMethods etiquetas de medio de pago.
var PaymentMethods = map[string]string{
	PaymentMethodCheque:        "Cheque",
	PaymentMethodChequeAFecha:  "Cheque a fecha",
	PaymentMethodLetra:         "Letra",
	PaymentMethodEfectivo:      "Efectivo",
	PaymentMethodPagoCtaCte:    "Pago A Cta. Cte.",
	PaymentMethodTarjetaCredit: "Tarjeta Crédito",
	PaymentMethodOtro:          "Otro",
}

// =============================================================================
// Forma de pago (FmaPago)
// =============================================================================

const (
	PaymentTermContado  = "1"
	PaymentTermCredito  = "2"
	PaymentTermGratuito = "3"

	DefaultPaymentTerm = PaymentTermContado
)

// PaymentTerms etiquetas de forma de pago.
var PaymentTerms = map[string]string{
	PaymentTermContado:  "Contado",
	PaymentTermCredito:  "Crédito",
	PaymentTermGratuito: "Gratuito",
}

// =============================================================================
// Política de facturación del cliente
// =============================================================================

const (
	InvoicingPolicyInvoice = "invoice" // factura
	InvoicingPolicyTicket  = "ticket"  // boleta
	InvoicingPolicyEGuide  = "eguide"  // guía de despacho
)

// ValidInvoicingPolicies políticas aceptadas (vacío = sin política).
var ValidInvoicingPolicies = map[string]bool{
	"":                     true,
	InvoicingPolicyInvoice: true,
	InvoicingPolicyTicket:  true,
	InvoicingPolicyEGuide:  true,
}

// Ambientes SII.
const (
	EnvironmentCertification = "certificacion" // maullin.sii.cl
	EnvironmentProduction    = "produccion"    // palena.sii.cl
)
