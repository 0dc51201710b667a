package sii_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sii-etd-api/internal/infrastructure/sii"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return key
}

// cafXML arma un archivo de autorización de folios como los que entrega el SII.
func cafXML(key *rsa.PrivateKey, code int, from, to int) string {
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return `<?xml version="1.0"?><AUTORIZACION><CAF version="1.0"><DA><RE>76086428-5</RE><RS>EMPRESA DE PRUEBA</RS>` +
		`<TD>` + itoa(code) + `</TD><RNG><D>` + itoa(from) + `</D><H>` + itoa(to) + `</H></RNG><FA>2024-01-01</FA>` +
		`<IDK>100</IDK></DA><FRMA algoritmo="SHA1withRSA">ZmFrZQ==</FRMA></CAF>` +
		`<RSASK>` + string(keyPEM) + `</RSASK></AUTORIZACION>`
}

func itoa(n int) string { return big.NewInt(int64(n)).String() }

func selfSignedCert(t *testing.T) *tls.Certificate {
	t.Helper()
	key := newKey(t)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "Firmante de prueba"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)
	return &tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func testTEDData() sii.TEDData {
	return sii.TEDData{
		IssuerRUT:    "76086428-5",
		Code:         33,
		Folio:        10,
		IssueDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ReceiverRUT:  "12345678-5",
		ReceiverName: "Comercial Ñandú y Compañía Limitada de Responsabilidad",
		Total:        11900,
		FirstItem:    "Servicio de asesoría",
		Timestamp:    time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CAF
// ──────────────────────────────────────────────────────────────────────────────

func TestParseCAF(t *testing.T) {
	key := newKey(t)
	caf, err := sii.ParseCAF([]byte(cafXML(key, 33, 1, 100)))
	require.NoError(t, err)
	assert.Equal(t, 33, caf.Code)
	assert.Equal(t, int64(1), caf.From)
	assert.Equal(t, int64(100), caf.To)
	assert.Equal(t, "76086428-5", caf.IssuerRUT)
	assert.True(t, caf.Covers(100))
	assert.False(t, caf.Covers(101))
	assert.Equal(t, key.N, caf.Key.N)
}

func TestParseCAF_SinLlave(t *testing.T) {
	_, err := sii.ParseCAF([]byte(`<AUTORIZACION><CAF><DA><TD>33</TD><RNG><D>1</D><H>2</H></RNG></DA></CAF></AUTORIZACION>`))
	assert.Error(t, err)
}

func TestLoadCAFDir(t *testing.T) {
	dir := t.TempDir()
	key := newKey(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "33.xml"), []byte(cafXML(key, 33, 1, 50)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "52.xml"), []byte(cafXML(key, 52, 1, 10)), 0o600))

	store, err := sii.LoadCAFDir(dir)
	require.NoError(t, err)
	assert.NotNil(t, store.Find(33, 50))
	assert.Nil(t, store.Find(33, 51))
	assert.NotNil(t, store.Find(52, 1))
	assert.Nil(t, store.Find(39, 1))

	empty, err := sii.LoadCAFDir("")
	require.NoError(t, err)
	assert.Nil(t, empty.Find(33, 1))
}

func TestCAFStore_PrimerFolioYVacio(t *testing.T) {
	key := newKey(t)
	store := sii.NewCAFStore()
	assert.True(t, store.Empty())
	assert.Zero(t, store.FirstFolio(33))

	for _, r := range [][2]int{{2001, 3000}, {1001, 2000}} {
		caf, err := sii.ParseCAF([]byte(cafXML(key, 33, r[0], r[1])))
		require.NoError(t, err)
		store.Add(caf)
	}
	assert.False(t, store.Empty())
	assert.Equal(t, int64(1001), store.FirstFolio(33))
	assert.Zero(t, store.FirstFolio(52))

	var nilStore *sii.CAFStore
	assert.True(t, nilStore.Empty())
	assert.Zero(t, nilStore.FirstFolio(33))
}

// ──────────────────────────────────────────────────────────────────────────────
// TED
// ──────────────────────────────────────────────────────────────────────────────

func TestTEDBuilder_FirmaVerificable(t *testing.T) {
	key := newKey(t)
	caf, err := sii.ParseCAF([]byte(cafXML(key, 33, 1, 100)))
	require.NoError(t, err)

	ted, err := sii.NewTEDBuilder().Build(testTEDData(), caf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ted, `<TED version="1.0"><DD><RE>76086428-5</RE><TD>33</TD><F>10</F>`))
	assert.Contains(t, ted, "<CAF")
	assert.Contains(t, ted, "<TSTED>2024-03-01T10:30:00</TSTED>")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(ted))
	rsr := doc.FindElement("//RSR").Text()
	assert.Len(t, []rune(rsr), 40, "RSR se trunca a 40 caracteres")

	sig, err := base64.StdEncoding.DecodeString(doc.FindElement("//FRMT").Text())
	require.NoError(t, err)
	signed, err := sii.CanonicalDD(ted)
	require.NoError(t, err)
	h := sha1.Sum(signed)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, h[:], sig),
		"FRMT debe verificar con la llave pública del CAF")
}

func TestTEDBuilder_TimbreUTF8_DDFirmadoEnLatin1(t *testing.T) {
	key := newKey(t)
	caf, err := sii.ParseCAF([]byte(cafXML(key, 33, 1, 100)))
	require.NoError(t, err)

	ted, err := sii.NewTEDBuilder().Build(testTEDData(), caf)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(ted))
	assert.Contains(t, ted, "Comercial Ñandú")

	signed, err := sii.CanonicalDD(ted)
	require.NoError(t, err)
	assert.Contains(t, string(signed), "Comercial \xd1and\xfa")
	assert.False(t, utf8.Valid(signed), "el DD firmado va en ISO-8859-1")
}

func TestTEDBuilder_SinCAF_FRMTVacio(t *testing.T) {
	ted, err := sii.NewTEDBuilder().Build(testTEDData(), nil)
	require.NoError(t, err)
	assert.Contains(t, ted, `<FRMT algoritmo="SHA1withRSA"/>`)
	assert.NotContains(t, ted, "<CAF")
}

func TestTEDBuilder_DatosIncompletos(t *testing.T) {
	d := testTEDData()
	d.Folio = 0
	_, err := sii.NewTEDBuilder().Build(d, nil)
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// DTE + firma XMLDSig
// ──────────────────────────────────────────────────────────────────────────────

func buildTestDTE(t *testing.T) []byte {
	t.Helper()
	ted, err := sii.NewTEDBuilder().Build(testTEDData(), nil)
	require.NoError(t, err)
	out, err := sii.NewDTEBuilder().Build(sii.DTEData{
		Code:          33,
		Folio:         10,
		IssueDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentTerm:   "1",
		PaymentMethod: "EF",
		Issuer:        sii.DTEParty{RUT: "76086428-5", Name: "Empresa de Prueba", Activity: "Servicios", Address: "Santiago"},
		Receiver:      sii.DTEParty{RUT: "12345678-5", Name: "Cliente"},
		Totals:        sii.DTETotals{Net: 10000, Tax: 1900, Total: 11900},
		Lines: []sii.DTELine{{
			Name: "Servicio", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(10000), Amount: decimal.NewFromInt(10000),
		}},
		TED:      ted,
		SignedAt: time.Date(2024, 3, 1, 10, 31, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return out
}

func TestDTEBuilder_Estructura(t *testing.T) {
	out := buildTestDTE(t)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	documento := doc.FindElement("//Documento")
	require.NotNil(t, documento)
	assert.Equal(t, "T33F10", documento.SelectAttrValue("ID", ""))
	assert.Equal(t, "33", doc.FindElement("//IdDoc/TipoDTE").Text())
	assert.Equal(t, "EF", doc.FindElement("//IdDoc/MedioPago").Text())
	assert.Equal(t, "11900", doc.FindElement("//Totales/MntTotal").Text())
	assert.NotNil(t, doc.FindElement("//Documento/TED"))
	assert.Nil(t, doc.FindElement("//Totales/MntExe"), "montos cero se omiten")
}

func TestDTEBuilder_SinTED(t *testing.T) {
	_, err := sii.NewDTEBuilder().Build(sii.DTEData{Code: 33, Folio: 1})
	assert.Error(t, err)
}

func TestXMLSigner_Firma(t *testing.T) {
	cert := selfSignedCert(t)
	signer := sii.NewXMLSigner(cert)
	require.True(t, signer.Enabled())

	signed, err := signer.Sign(buildTestDTE(t))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	sig := doc.Root().SelectElement("Signature")
	require.NotNil(t, sig, "ds:Signature debe ser hijo de DTE")
	ref := sig.FindElement("SignedInfo/Reference")
	require.NotNil(t, ref)
	assert.Equal(t, "#T33F10", ref.SelectAttrValue("URI", ""))
	assert.NotEmpty(t, sig.FindElement("SignatureValue").Text())
	assert.NotEmpty(t, sig.FindElement("KeyInfo/X509Data/X509Certificate").Text())
}

func TestXMLSigner_SinCertificado(t *testing.T) {
	signer := sii.NewXMLSigner(nil)
	assert.False(t, signer.Enabled())
	_, err := signer.Sign([]byte("<DTE/>"))
	assert.ErrorIs(t, err, sii.ErrNoCertificate)
}

func TestLoadCertificate_RutaVacia(t *testing.T) {
	cert, err := sii.LoadCertificate("", "", "")
	assert.NoError(t, err)
	assert.Nil(t, cert)
}
