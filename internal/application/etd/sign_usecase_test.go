package etd_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sii-etd-api/internal/application/etd"
	"github.com/jhoicas/sii-etd-api/internal/domain"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	infrasii "github.com/jhoicas/sii-etd-api/internal/infrastructure/sii"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

type fakeInvoices struct {
	byID    map[string]*entity.Invoice
	lines   map[string][]*entity.InvoiceLine
	updates int
}

func (f *fakeInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	f.byID[inv.ID] = inv
	return nil
}
func (f *fakeInvoices) Update(_ context.Context, inv *entity.Invoice) error {
	f.updates++
	f.byID[inv.ID] = inv
	return nil
}
func (f *fakeInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	return f.byID[id], nil
}
func (f *fakeInvoices) ReplaceLines(_ context.Context, id string, lines []*entity.InvoiceLine) error {
	f.lines[id] = lines
	return nil
}
func (f *fakeInvoices) GetLines(_ context.Context, id string) ([]*entity.InvoiceLine, error) {
	return f.lines[id], nil
}

type fakePickings struct {
	byID    map[string]*entity.Picking
	updates int
}

func (f *fakePickings) Create(_ context.Context, p *entity.Picking) error {
	f.byID[p.ID] = p
	return nil
}
func (f *fakePickings) Update(_ context.Context, p *entity.Picking) error {
	f.updates++
	f.byID[p.ID] = p
	return nil
}
func (f *fakePickings) GetByID(_ context.Context, id string) (*entity.Picking, error) {
	return f.byID[id], nil
}

type fakeCompanies struct{ c *entity.Company }

func (f *fakeCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	if f.c != nil && f.c.ID == id {
		return f.c, nil
	}
	return nil, nil
}
func (f *fakeCompanies) NextFolio(context.Context, string, int, int64) (int64, error) { return 1, nil }

type fakeCustomers struct{ c *entity.Customer }

func (f *fakeCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	if f.c != nil && f.c.ID == id {
		return f.c, nil
	}
	return nil, nil
}

type fakeClassRepo struct {
	classes []*entity.DocumentClass
	err     error
	last    repository.DocumentClassFilter
}

func (f *fakeClassRepo) GetByID(_ context.Context, id string) (*entity.DocumentClass, error) {
	for _, c := range f.classes {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}
func (f *fakeClassRepo) FindOne(ctx context.Context, flt repository.DocumentClassFilter) (*entity.DocumentClass, error) {
	out, err := f.Search(ctx, flt)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}
func (f *fakeClassRepo) Search(_ context.Context, flt repository.DocumentClassFilter) ([]*entity.DocumentClass, error) {
	f.last = flt
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.DocumentClass
	for _, c := range f.classes {
		if flt.Code != 0 && c.Code != flt.Code {
			continue
		}
		if len(flt.DocumentTypes) > 0 && !contains(flt.DocumentTypes, c.DocumentType) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type signFixture struct {
	invoices  *fakeInvoices
	pickings  *fakePickings
	customers *fakeCustomers
	uc        *etd.SignUseCase
}

// newSignFixture sin CAFs cargados: los TED quedan sin FRMT.
func newSignFixture() *signFixture {
	return newSignFixtureWith(infrasii.NewCAFStore(), pkgsii.EnvironmentProduction)
}

func newSignFixtureWith(cafs *infrasii.CAFStore, environment string) *signFixture {
	classes := &fakeClassRepo{classes: []*entity.DocumentClass{
		{ID: "dc-33", Code: pkgsii.CodeFacturaElectronica, DocumentType: pkgsii.DocumentTypeInvoice, Active: true},
		{ID: "dc-52", Code: pkgsii.CodeGuiaDespachoElectronica, DocumentType: pkgsii.DocumentTypeStockPicking, Active: true},
	}}
	f := &signFixture{
		invoices:  &fakeInvoices{byID: map[string]*entity.Invoice{}, lines: map[string][]*entity.InvoiceLine{}},
		pickings:  &fakePickings{byID: map[string]*entity.Picking{}},
		customers: &fakeCustomers{c: &entity.Customer{ID: "cu-1", CompanyID: "co-1", Name: "Cliente Uno", RUT: "12.345.678-5"}},
	}
	f.uc = etd.NewSignUseCase(
		f.invoices, f.pickings,
		&fakeCompanies{c: &entity.Company{ID: "co-1", Name: "Comercial Andes SpA", RUT: "76.086.428-5", Activity: "Venta"}},
		f.customers,
		classes,
		infrasii.NewTEDBuilder(), infrasii.NewDTEBuilder(), infrasii.NewXMLSigner(nil), cafs,
		environment, zerolog.Nop(),
	)
	return f
}

func (f *signFixture) addInvoice(folio int64, status string) *entity.Invoice {
	inv := &entity.Invoice{
		ID: "inv-1", CompanyID: "co-1", CustomerID: "cu-1", Type: entity.InvoiceTypeOutInvoice,
		State: entity.InvoiceStateOpen, ClassID: "dc-33", Folio: folio,
		Date:     time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		NetTotal: decimal.NewFromInt(1000), TaxTotal: decimal.NewFromInt(190), GrandTotal: decimal.NewFromInt(1190),
		PaymentTerm: pkgsii.DefaultPaymentTerm, ETDStatus: status,
	}
	f.invoices.byID[inv.ID] = inv
	f.invoices.lines[inv.ID] = []*entity.InvoiceLine{{
		ID: "l-1", InvoiceID: inv.ID, Description: "Servicio", Quantity: decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(1000), TaxRate: decimal.RequireFromString("0.19"), Subtotal: decimal.NewFromInt(1000),
	}}
	return inv
}

func TestSignInvoice_SinCAFNiCertificado(t *testing.T) {
	f := newSignFixture()
	f.addInvoice(7, entity.ETDStatusPending)

	require.NoError(t, f.uc.Handle(context.Background(), queue.NewJob(queue.ModelInvoice, "inv-1", "co-1")))

	inv := f.invoices.byID["inv-1"]
	assert.Equal(t, entity.ETDStatusSigned, inv.ETDStatus)
	assert.Empty(t, inv.ETDError)
	assert.Contains(t, inv.SIIBarcode, `<TED version="1.0">`)
	assert.Contains(t, inv.SIIBarcode, "<RE>76086428-5</RE>")
	assert.Contains(t, inv.SIIBarcode, "<TD>33</TD>")
	assert.Contains(t, inv.SIIBarcode, "<F>7</F>")
	assert.Contains(t, inv.SIIBarcode, "<MNT>1190</MNT>")
	assert.Contains(t, inv.ETDXML, "<TipoDTE>33</TipoDTE>")
	assert.NotContains(t, inv.ETDXML, "Signature")
}

// cafStore almacén con un CAF de facturas (33) para el rango indicado.
func cafStore(t *testing.T, key *rsa.PrivateKey, from, to int64) *infrasii.CAFStore {
	t.Helper()
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	raw := fmt.Sprintf(`<AUTORIZACION><CAF version="1.0"><DA><RE>76086428-5</RE><RS>COMERCIAL ANDES SPA</RS>`+
		`<TD>33</TD><RNG><D>%d</D><H>%d</H></RNG><FA>2024-01-01</FA><IDK>100</IDK></DA>`+
		`<FRMA algoritmo="SHA1withRSA">ZmFrZQ==</FRMA></CAF><RSASK>%s</RSASK></AUTORIZACION>`, from, to, keyPEM)
	caf, err := infrasii.ParseCAF([]byte(raw))
	require.NoError(t, err)
	store := infrasii.NewCAFStore()
	store.Add(caf)
	return store
}

func TestSignInvoice_ProduccionFolioFueraDeCAF_MarcaError(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	f := newSignFixtureWith(cafStore(t, key, 1001, 2000), pkgsii.EnvironmentProduction)
	f.addInvoice(1, entity.ETDStatusPending)

	err = f.uc.SignInvoice(context.Background(), "inv-1")
	require.ErrorIs(t, err, etd.ErrFolioNotAuthorized)
	inv := f.invoices.byID["inv-1"]
	assert.Equal(t, entity.ETDStatusError, inv.ETDStatus)
	assert.Contains(t, inv.ETDError, "ted")
	assert.Empty(t, inv.SIIBarcode)
	assert.Empty(t, inv.ETDXML)
}

func TestSignInvoice_CertificacionFolioFueraDeCAF_TEDSinFirma(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	f := newSignFixtureWith(cafStore(t, key, 1001, 2000), pkgsii.EnvironmentCertification)
	f.addInvoice(1, entity.ETDStatusPending)

	require.NoError(t, f.uc.SignInvoice(context.Background(), "inv-1"))
	inv := f.invoices.byID["inv-1"]
	assert.Equal(t, entity.ETDStatusSigned, inv.ETDStatus)
	assert.Contains(t, inv.SIIBarcode, `<FRMT algoritmo="SHA1withRSA"/>`)
}

func TestSignInvoice_FolioCubierto_TimbreVerificable(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	f := newSignFixtureWith(cafStore(t, key, 1001, 2000), pkgsii.EnvironmentProduction)
	f.customers.c.Name = "Ferretería Peñalolén"
	f.addInvoice(1001, entity.ETDStatusPending)

	require.NoError(t, f.uc.SignInvoice(context.Background(), "inv-1"))
	inv := f.invoices.byID["inv-1"]
	assert.Equal(t, entity.ETDStatusSigned, inv.ETDStatus)
	assert.True(t, utf8.ValidString(inv.SIIBarcode))
	assert.Contains(t, inv.SIIBarcode, "<RSR>Ferretería Peñalolén</RSR>")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(inv.SIIBarcode))
	sig, err := base64.StdEncoding.DecodeString(doc.FindElement("//FRMT").Text())
	require.NoError(t, err)
	signed, err := infrasii.CanonicalDD(inv.SIIBarcode)
	require.NoError(t, err)
	assert.Contains(t, string(signed), "Ferreter\xeda Pe\xf1alol\xe9n")
	h := sha1.Sum(signed)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, h[:], sig))
}

func TestSignInvoice_YaFirmadaSeOmite(t *testing.T) {
	f := newSignFixture()
	f.addInvoice(7, entity.ETDStatusSigned)

	require.NoError(t, f.uc.SignInvoice(context.Background(), "inv-1"))
	assert.Zero(t, f.invoices.updates)
}

func TestSignInvoice_SinFolioMarcaError(t *testing.T) {
	f := newSignFixture()
	f.addInvoice(0, entity.ETDStatusPending)

	err := f.uc.SignInvoice(context.Background(), "inv-1")
	require.Error(t, err)
	inv := f.invoices.byID["inv-1"]
	assert.Equal(t, entity.ETDStatusError, inv.ETDStatus)
	assert.Contains(t, inv.ETDError, "folio")
	assert.Empty(t, inv.SIIBarcode)
}

func TestSignInvoice_NoEncontrada(t *testing.T) {
	f := newSignFixture()
	assert.Error(t, f.uc.SignInvoice(context.Background(), "nope"))
}

func TestHandle_ModeloDesconocido(t *testing.T) {
	f := newSignFixture()
	err := f.uc.Handle(context.Background(), queue.Job{Model: "res.partner", RecordID: "x"})
	assert.Error(t, err)
}

func TestSignPicking_GuiaConTraslado(t *testing.T) {
	f := newSignFixture()
	done := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.pickings.byID["p-1"] = &entity.Picking{
		ID: "p-1", CompanyID: "co-1", CustomerID: "cu-1", Name: "WH/OUT/0001", State: entity.PickingStateDone,
		ClassID: "dc-52", Folio: 3, LocationDestUsage: entity.LocationUsageCustomer, UseDocuments: true,
		DestinationAddress: "Av. Siempre Viva 123", DoneAt: &done, ETDStatus: entity.ETDStatusPending,
		Moves: []*entity.PickingMove{{ID: "m-1", PickingID: "p-1", Description: "Cajas", Quantity: 4}},
	}

	require.NoError(t, f.uc.Handle(context.Background(), queue.NewJob(queue.ModelPicking, "p-1", "co-1")))

	p := f.pickings.byID["p-1"]
	assert.Equal(t, entity.ETDStatusSigned, p.ETDStatus)
	assert.Contains(t, p.SIIBarcode, "<TD>52</TD>")
	assert.Contains(t, p.SIIBarcode, "<FE>2024-06-01</FE>")
	assert.Contains(t, p.ETDXML, "<IndTraslado>1</IndTraslado>")
}

func TestSignPicking_SinClaseMarcaError(t *testing.T) {
	f := newSignFixture()
	f.pickings.byID["p-2"] = &entity.Picking{ID: "p-2", CompanyID: "co-1", Folio: 1, ETDStatus: entity.ETDStatusPending}

	require.Error(t, f.uc.SignPicking(context.Background(), "p-2"))
	assert.Equal(t, entity.ETDStatusError, f.pickings.byID["p-2"].ETDStatus)
}

func TestDocumentClassService_FindByCode(t *testing.T) {
	repo := &fakeClassRepo{classes: []*entity.DocumentClass{
		{ID: "dc-52", Code: 52, DocumentType: pkgsii.DocumentTypeStockPicking},
	}}
	svc := etd.NewDocumentClassService(repo, zerolog.Nop())
	ctx := context.Background()

	got := svc.FindByCode(ctx, 52, pkgsii.DocumentTypeStockPicking)
	require.NotNil(t, got)
	assert.Equal(t, "dc-52", got.ID)

	assert.Nil(t, svc.FindByCode(ctx, 52, pkgsii.DocumentTypeInvoice))
	assert.Nil(t, svc.FindByCode(ctx, 0))

	repo.err = errors.New("db caída")
	assert.Nil(t, svc.FindByCode(ctx, 52), "un fallo de búsqueda deja el documento sin clase")
}

func TestDocumentClassService_ListForModel(t *testing.T) {
	repo := &fakeClassRepo{classes: []*entity.DocumentClass{
		{ID: "dc-33", Code: 33, DocumentType: pkgsii.DocumentTypeInvoice},
		{ID: "dc-52", Code: 52, DocumentType: pkgsii.DocumentTypeStockPicking},
		{ID: "dc-61", Code: 61, DocumentType: pkgsii.DocumentTypeCreditNote},
	}}
	svc := etd.NewDocumentClassService(repo, zerolog.Nop())

	out, err := svc.ListForModel(context.Background(), entity.ETDModelInvoice)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 33, out[0].Code)
	assert.Equal(t, 61, out[1].Code)

	out, err = svc.ListForModel(context.Background(), entity.ETDModelPicking)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{pkgsii.DocumentTypeStockPicking}, repo.last.DocumentTypes)

	_, err = svc.ListForModel(context.Background(), "res.partner")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
