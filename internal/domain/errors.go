package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInvalidState       = errors.New("transición de estado inválida")
	ErrNoBarcode          = errors.New("el documento no tiene timbre SII")
	ErrRefundNotSupported = errors.New("tipo de factura no admite nota de crédito")
)
