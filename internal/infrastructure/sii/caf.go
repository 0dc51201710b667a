package sii

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// CAF Código de Autorización de Folios: rango de folios autorizado por el SII
// y la llave privada con la que se firma el TED.
type CAF struct {
	IssuerRUT string
	Code      int
	From      int64
	To        int64
	Key       *rsa.PrivateKey
	element   *etree.Element // nodo <CAF> tal como lo entrega el SII
}

// Covers indica si el folio está dentro del rango autorizado.
func (c *CAF) Covers(folio int64) bool {
	return folio >= c.From && folio <= c.To
}

// ParseCAF lee un archivo de autorización (<AUTORIZACION><CAF>…</CAF><RSASK>…</RSASK>).
func ParseCAF(data []byte) (*CAF, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("sii: parsear CAF: %w", err)
	}
	cafEl := doc.FindElement("//CAF")
	if cafEl == nil {
		return nil, fmt.Errorf("sii: archivo sin nodo CAF")
	}
	code, err := strconv.Atoi(strings.TrimSpace(childText(cafEl, "DA/TD")))
	if err != nil {
		return nil, fmt.Errorf("sii: CAF con TD inválido: %w", err)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(childText(cafEl, "DA/RNG/D")), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("sii: CAF con rango inválido: %w", err)
	}
	to, err := strconv.ParseInt(strings.TrimSpace(childText(cafEl, "DA/RNG/H")), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("sii: CAF con rango inválido: %w", err)
	}

	skEl := doc.FindElement("//RSASK")
	if skEl == nil {
		return nil, fmt.Errorf("sii: CAF sin llave privada RSASK")
	}
	key, err := parseRSAKey(skEl.Text())
	if err != nil {
		return nil, err
	}
	return &CAF{
		IssuerRUT: strings.TrimSpace(childText(cafEl, "DA/RE")),
		Code:      code,
		From:      from,
		To:        to,
		Key:       key,
		element:   cafEl.Copy(),
	}, nil
}

func parseRSAKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemText)))
	if block == nil {
		return nil, fmt.Errorf("sii: RSASK no es PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("sii: parsear RSASK: %w", err)
	}
	key, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sii: RSASK no es una llave RSA")
	}
	return key, nil
}

func childText(el *etree.Element, path string) string {
	if c := el.FindElement(path); c != nil {
		return c.Text()
	}
	return ""
}

// CAFStore CAFs disponibles por código de documento.
type CAFStore struct {
	byCode map[int][]*CAF
}

// NewCAFStore crea un almacén vacío.
func NewCAFStore() *CAFStore {
	return &CAFStore{byCode: make(map[int][]*CAF)}
}

// Add registra un CAF.
func (s *CAFStore) Add(c *CAF) {
	s.byCode[c.Code] = append(s.byCode[c.Code], c)
}

// Find devuelve el CAF que cubre el folio para el código, o nil.
func (s *CAFStore) Find(code int, folio int64) *CAF {
	if s == nil {
		return nil
	}
	for _, c := range s.byCode[code] {
		if c.Covers(folio) {
			return c
		}
	}
	return nil
}

// FirstFolio menor folio autorizado para el código; 0 sin CAF para ese código.
func (s *CAFStore) FirstFolio(code int) int64 {
	if s == nil {
		return 0
	}
	var first int64
	for _, c := range s.byCode[code] {
		if first == 0 || c.From < first {
			first = c.From
		}
	}
	return first
}

// Empty indica que no hay ningún CAF cargado.
func (s *CAFStore) Empty() bool {
	if s == nil {
		return true
	}
	for _, cafs := range s.byCode {
		if len(cafs) > 0 {
			return false
		}
	}
	return true
}

// LoadCAFDir carga todos los *.xml del directorio. Directorio vacío = almacén vacío.
func LoadCAFDir(dir string) (*CAFStore, error) {
	store := NewCAFStore()
	if dir == "" {
		return store, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("sii: listar CAFs: %w", err)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("sii: leer CAF %s: %w", f, err)
		}
		caf, err := ParseCAF(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		store.Add(caf)
	}
	return store, nil
}
