package sii

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateRUT valida el dígito verificador de un RUT chileno (módulo 11).
// Acepta "76.123.456-7", "76123456-7" o "761234567"; la K puede venir en minúscula.
func ValidateRUT(rut string) error {
	body, dv, err := splitRUT(rut)
	if err != nil {
		return err
	}
	expected := ComputeRUTVerifier(body)
	if dv != expected {
		return fmt.Errorf("sii: dígito verificador del RUT inválido: esperado %c, recibido %c", expected, dv)
	}
	return nil
}

// ComputeRUTVerifier calcula el dígito verificador para el cuerpo numérico del RUT.
func ComputeRUTVerifier(body string) byte {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + r)
	}
}

// NormalizeRUT devuelve el RUT sin puntos y con guion: "76123456-7".
// El SII exige este formato en el TED (RE, RR).
func NormalizeRUT(rut string) (string, error) {
	body, dv, err := splitRUT(rut)
	if err != nil {
		return "", err
	}
	return body + "-" + string(dv), nil
}

func splitRUT(rut string) (string, byte, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(rut) {
		if unicode.IsDigit(r) || r == 'K' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if len(clean) < 2 {
		return "", 0, fmt.Errorf("sii: RUT demasiado corto: %q", rut)
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1]
	if strings.ContainsRune(body, 'K') {
		return "", 0, fmt.Errorf("sii: RUT con caracteres inválidos: %q", rut)
	}
	return strings.TrimLeft(body, "0"), dv, nil
}
