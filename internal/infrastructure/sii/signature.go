// Firma XMLDSig enveloped del DTE (RSA-SHA1), inyectada como último hijo de <DTE>.

package sii

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/beevik/etree"
)

// ErrNoCertificate no hay certificado configurado para firmar.
var ErrNoCertificate = errors.New("sii: sin certificado de firma")

// XMLSigner firma documentos DTE con el certificado del emisor.
type XMLSigner struct {
	cert *tls.Certificate
}

// NewXMLSigner crea el firmador. cert puede ser nil (modo desarrollo).
func NewXMLSigner(cert *tls.Certificate) *XMLSigner {
	return &XMLSigner{cert: cert}
}

// Enabled indica si hay certificado para firmar.
func (s *XMLSigner) Enabled() bool {
	return s != nil && s.cert != nil
}

// Sign firma el nodo Documento del DTE y devuelve el XML con ds:Signature.
func (s *XMLSigner) Sign(xmlBytes []byte) ([]byte, error) {
	if !s.Enabled() {
		return nil, ErrNoCertificate
	}
	priv, ok := s.cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sii: el certificado debe incluir llave privada RSA")
	}
	x509Cert, err := x509.ParseCertificate(s.cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("sii: parsear certificado: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sii: parsear DTE: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sii: DTE sin raíz")
	}
	docEl := root.FindElement("Documento")
	if docEl == nil {
		return nil, fmt.Errorf("sii: DTE sin nodo Documento")
	}
	refID := docEl.SelectAttrValue("ID", "")

	// 1) Digest del Documento (C14N, ISO-8859-1)
	digest, err := documentDigest(docEl)
	if err != nil {
		return nil, err
	}

	// 2) SignedInfo y firma RSA-SHA1
	signedInfoXML := buildSignedInfo(refID, digest)
	canonicalSI, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		canonicalSI = []byte(signedInfoXML)
	}
	h := sha1.Sum(canonicalSI)
	sigValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA1, h[:])
	if err != nil {
		return nil, fmt.Errorf("sii: firmar SignedInfo: %w", err)
	}

	// 3) Inyectar ds:Signature
	sigXML := buildSignature(signedInfoXML, base64.StdEncoding.EncodeToString(sigValue), &priv.PublicKey, x509Cert)
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(sigXML); err != nil {
		return nil, fmt.Errorf("sii: parsear nodo Signature: %w", err)
	}
	root.AddChild(sigDoc.Root())

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sii: serializar DTE firmado: %w", err)
	}
	return out, nil
}

func documentDigest(docEl *etree.Element) (string, error) {
	c := docEl.Copy()
	c.CreateAttr("xmlns", NamespaceSIIDTE)
	d := etree.NewDocument()
	d.SetRoot(c)
	raw, err := d.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("sii: serializar Documento: %w", err)
	}
	canonical, err := canonicalizeXML(raw)
	if err != nil {
		canonical = raw
	}
	latin1, err := toLatin1(canonical)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(latin1)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func buildSignedInfo(refID, digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<SignedInfo xmlns="` + NamespaceDS + `">`)
	sb.WriteString(`<CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)
	sb.WriteString(`<Reference URI="#` + refID + `">`)
	sb.WriteString(`<Transforms><Transform Algorithm="` + AlgC14N + `"/></Transforms>`)
	sb.WriteString(`<DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<DigestValue>` + digestB64 + `</DigestValue>`)
	sb.WriteString(`</Reference></SignedInfo>`)
	return sb.String()
}

func buildSignature(signedInfoXML, sigB64 string, pub *rsa.PublicKey, cert *x509.Certificate) string {
	modulus := base64.StdEncoding.EncodeToString(pub.N.Bytes())
	exponent := base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	var sb strings.Builder
	sb.WriteString(`<Signature xmlns="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<SignatureValue>` + sigB64 + `</SignatureValue>`)
	sb.WriteString(`<KeyInfo><KeyValue><RSAKeyValue>`)
	sb.WriteString(`<Modulus>` + modulus + `</Modulus><Exponent>` + exponent + `</Exponent>`)
	sb.WriteString(`</RSAKeyValue></KeyValue>`)
	sb.WriteString(`<X509Data><X509Certificate>` + base64.StdEncoding.EncodeToString(cert.Raw) + `</X509Certificate></X509Data>`)
	sb.WriteString(`</KeyInfo></Signature>`)
	return sb.String()
}
