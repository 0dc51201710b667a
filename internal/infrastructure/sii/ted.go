package sii

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

// TEDData datos del documento que se timbran.
type TEDData struct {
	IssuerRUT    string
	Code         int
	Folio        int64
	IssueDate    time.Time
	ReceiverRUT  string
	ReceiverName string
	Total        int64
	FirstItem    string
	Timestamp    time.Time
}

// TEDBuilder arma y firma el Timbre Electrónico del Documento.
type TEDBuilder struct{}

// NewTEDBuilder crea el builder.
func NewTEDBuilder() *TEDBuilder { return &TEDBuilder{} }

// Build devuelve el TED serializado. Con caf nil el nodo FRMT queda vacío
// (documento sin timbre válido, solo para desarrollo).
func (b *TEDBuilder) Build(d TEDData, caf *CAF) (string, error) {
	if d.IssuerRUT == "" || d.Code == 0 || d.Folio <= 0 {
		return "", fmt.Errorf("sii: TED requiere RUT emisor, tipo y folio")
	}
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	ted := etree.NewElement("TED")
	ted.CreateAttr("version", TEDVersion)
	dd := ted.CreateElement("DD")
	dd.CreateElement("RE").SetText(d.IssuerRUT)
	dd.CreateElement("TD").SetText(strconv.Itoa(d.Code))
	dd.CreateElement("F").SetText(strconv.FormatInt(d.Folio, 10))
	dd.CreateElement("FE").SetText(d.IssueDate.Format(dateFmt))
	dd.CreateElement("RR").SetText(d.ReceiverRUT)
	dd.CreateElement("RSR").SetText(truncate(d.ReceiverName, maxRSRLen))
	dd.CreateElement("MNT").SetText(strconv.FormatInt(d.Total, 10))
	dd.CreateElement("IT1").SetText(truncate(d.FirstItem, maxIT1Len))
	if caf != nil {
		dd.AddChild(caf.element.Copy())
	}
	dd.CreateElement("TSTED").SetText(ts.Format(timestampFmt))

	frmt := ted.CreateElement("FRMT")
	frmt.CreateAttr("algoritmo", AlgTEDFirma)
	if caf != nil {
		sig, err := signDD(dd, caf.Key)
		if err != nil {
			return "", err
		}
		frmt.SetText(sig)
	}

	doc := etree.NewDocument()
	doc.SetRoot(ted)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("sii: serializar TED: %w", err)
	}
	return out, nil
}

// CanonicalDD devuelve los bytes firmados del nodo DD de un TED (C14N, ISO-8859-1).
func CanonicalDD(tedXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(tedXML); err != nil {
		return nil, fmt.Errorf("sii: parsear TED: %w", err)
	}
	dd := doc.FindElement("//DD")
	if dd == nil {
		return nil, fmt.Errorf("sii: TED sin nodo DD")
	}
	return ddBytes(dd)
}

func ddBytes(dd *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(dd.Copy())
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sii: serializar DD: %w", err)
	}
	return canonicalLatin1(raw)
}

func signDD(dd *etree.Element, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("sii: CAF sin llave privada")
	}
	data, err := ddBytes(dd)
	if err != nil {
		return "", err
	}
	h := sha1.Sum(data)
	sig, err := rsa.SignPKCS1v15(nil, key, crypto.SHA1, h[:])
	if err != nil {
		return "", fmt.Errorf("sii: firmar DD: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
