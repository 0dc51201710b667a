package sii

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// toLatin1 convierte UTF-8 a ISO-8859-1 (codificación exigida por el SII).
// Caracteres no representables se reemplazan.
func toLatin1(data []byte) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	out, err := enc.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("sii: convertir a ISO-8859-1: %w", err)
	}
	return out, nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// canonicalLatin1 bytes a firmar: C14N del XML y luego ISO-8859-1.
func canonicalLatin1(raw []byte) ([]byte, error) {
	canonical, err := canonicalizeXML(raw)
	if err != nil {
		return nil, fmt.Errorf("sii: canonicalizar DD: %w", err)
	}
	return toLatin1(canonical)
}
