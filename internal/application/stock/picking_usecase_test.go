package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
	"github.com/jhoicas/sii-etd-api/internal/application/stock"
	"github.com/jhoicas/sii-etd-api/internal/domain"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

const (
	testCompanyID  = "company-1"
	testCustomerID = "customer-1"
)

type fakePickingRepo struct{ pickings map[string]*entity.Picking }

func (r *fakePickingRepo) Create(_ context.Context, p *entity.Picking) error {
	cp := *p
	r.pickings[p.ID] = &cp
	return nil
}

func (r *fakePickingRepo) Update(_ context.Context, p *entity.Picking) error {
	cp := *p
	r.pickings[p.ID] = &cp
	return nil
}

func (r *fakePickingRepo) GetByID(_ context.Context, id string) (*entity.Picking, error) {
	p, ok := r.pickings[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type fakeCustomerRepo struct{}

func (fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	if id != testCustomerID {
		return nil, nil
	}
	return &entity.Customer{ID: id, CompanyID: testCompanyID, Name: "Cliente", RUT: "11111111-1"}, nil
}

type fakeCompanyRepo struct {
	company *entity.Company
	folio   int64
}

func (r *fakeCompanyRepo) GetByID(_ context.Context, _ string) (*entity.Company, error) {
	return r.company, nil
}

func (r *fakeCompanyRepo) NextFolio(_ context.Context, _ string, _ int, first int64) (int64, error) {
	r.folio = max(r.folio+1, first)
	return r.folio, nil
}

type fakeFolios map[int]int64

func (f fakeFolios) FirstFolio(code int) int64 { return f[code] }

var invoiceClass = &entity.DocumentClass{
	ID: "class-33", Code: 33, Name: "Factura Electrónica",
	DocumentType: pkgsii.DocumentTypeInvoice, Electronic: true, Active: true,
}

type fakeClasses struct{ guide *entity.DocumentClass }

func (f fakeClasses) FindByCode(_ context.Context, code int, types ...string) *entity.DocumentClass {
	if f.guide == nil || code != f.guide.Code {
		return nil
	}
	if len(types) != 1 || types[0] != pkgsii.DocumentTypeStockPicking {
		return nil
	}
	return f.guide
}

func (f fakeClasses) GetByID(_ context.Context, id string) (*entity.DocumentClass, error) {
	if id == invoiceClass.ID {
		return invoiceClass, nil
	}
	if f.guide == nil || id != f.guide.ID {
		return nil, nil
	}
	return f.guide, nil
}

type fakeQueue struct {
	jobs []queue.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job queue.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fixture struct {
	repo   *fakePickingRepo
	queue  *fakeQueue
	folios fakeFolios
	uc     *stock.PickingUseCase
}

func newFixture(withGuide bool, etdModels ...string) *fixture {
	var classes fakeClasses
	if withGuide {
		classes.guide = &entity.DocumentClass{
			ID: "class-52", Code: 52, Name: "Guía de Despacho Electrónica",
			DocumentType: pkgsii.DocumentTypeStockPicking, Electronic: true, Active: true,
		}
	}
	f := &fixture{
		repo:   &fakePickingRepo{pickings: map[string]*entity.Picking{}},
		queue:  &fakeQueue{},
		folios: fakeFolios{},
	}
	companies := &fakeCompanyRepo{company: &entity.Company{ID: testCompanyID, ETDModels: etdModels}}
	f.uc = stock.NewPickingUseCase(f.repo, fakeCustomerRepo{}, companies, classes, f.queue, f.folios, zerolog.Nop())
	return f
}

func pickingReq(customerID, usage string, useDocuments bool) dto.CreatePickingRequest {
	return dto.CreatePickingRequest{
		CustomerID:        customerID,
		Name:              "WH/OUT/00001",
		LocationDestUsage: usage,
		UseDocuments:      useDocuments,
		Moves:             []dto.PickingMoveRequest{{Description: "Caja", Quantity: 3}},
	}
}

func TestCreatePicking_ConPartnerAsigna52(t *testing.T) {
	f := newFixture(true)

	resp, err := f.uc.CreatePicking(context.Background(), testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)
	require.NotNil(t, resp.Class)
	assert.Equal(t, 52, resp.Class.Code)
	assert.Equal(t, pkgsii.DocumentTypeStockPicking, resp.Class.DocumentType)
	assert.Len(t, resp.Moves, 1)
}

func TestCreatePicking_SinPartner_SinClase(t *testing.T) {
	f := newFixture(true)

	resp, err := f.uc.CreatePicking(context.Background(), testCompanyID, pickingReq("", entity.LocationUsageInternal, false))
	require.NoError(t, err)
	assert.Nil(t, resp.Class)
}

func TestCreatePicking_ClaseNoCargada_SinClase(t *testing.T) {
	f := newFixture(false)

	resp, err := f.uc.CreatePicking(context.Background(), testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)
	assert.Nil(t, resp.Class)
}

func TestCreatePicking_PartnerIgnoraClaseExplicita(t *testing.T) {
	f := newFixture(true)
	req := pickingReq(testCustomerID, entity.LocationUsageCustomer, true)
	req.ClassID = invoiceClass.ID

	resp, err := f.uc.CreatePicking(context.Background(), testCompanyID, req)
	require.NoError(t, err)
	require.NotNil(t, resp.Class)
	assert.Equal(t, 52, resp.Class.Code)
}

func TestCreatePicking_SinPartner_ClaseExplicita(t *testing.T) {
	f := newFixture(true)
	req := pickingReq("", entity.LocationUsageInternal, false)
	req.ClassID = "class-52"

	resp, err := f.uc.CreatePicking(context.Background(), testCompanyID, req)
	require.NoError(t, err)
	require.NotNil(t, resp.Class)
	assert.Equal(t, 52, resp.Class.Code)
}

func TestCreatePicking_ClaseDeFacturaRechazada(t *testing.T) {
	f := newFixture(true)
	req := pickingReq("", entity.LocationUsageInternal, false)
	req.ClassID = invoiceClass.ID

	_, err := f.uc.CreatePicking(context.Background(), testCompanyID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.repo.pickings)
}

func TestCreatePicking_PartnerInexistente(t *testing.T) {
	f := newFixture(true)

	_, err := f.uc.CreatePicking(context.Background(), testCompanyID, pickingReq("otro", entity.LocationUsageCustomer, true))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDonePicking_EncolaFirma(t *testing.T) {
	f := newFixture(true, entity.ETDModelPicking)
	ctx := context.Background()
	created, err := f.uc.CreatePicking(ctx, testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)

	resp, err := f.uc.DonePicking(ctx, testCompanyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PickingStateDone, resp.State)
	assert.Equal(t, int64(1), resp.Folio)
	assert.Equal(t, entity.ETDStatusPending, resp.ETDStatus)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, queue.ModelPicking, f.queue.jobs[0].Model)
	assert.Equal(t, created.ID, f.queue.jobs[0].RecordID)

	stored, _ := f.repo.GetByID(ctx, created.ID)
	assert.NotNil(t, stored.DoneAt)
}

func TestDonePicking_FolioDesdeRangoCAF(t *testing.T) {
	f := newFixture(true, entity.ETDModelPicking)
	f.folios[52] = 501
	ctx := context.Background()

	first, err := f.uc.CreatePicking(ctx, testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)
	second, err := f.uc.CreatePicking(ctx, testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)

	resp, err := f.uc.DonePicking(ctx, testCompanyID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(501), resp.Folio)
	resp, err = f.uc.DonePicking(ctx, testCompanyID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(502), resp.Folio)
}

func TestDonePicking_CondicionesDeFirma(t *testing.T) {
	cases := []struct {
		name         string
		models       []string
		usage        string
		useDocuments bool
	}{
		{"sin documentos", []string{entity.ETDModelPicking}, entity.LocationUsageCustomer, false},
		{"empresa sin modelo", []string{entity.ETDModelInvoice}, entity.LocationUsageCustomer, true},
		{"destino interno", []string{entity.ETDModelPicking}, entity.LocationUsageInternal, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(true, tc.models...)
			ctx := context.Background()
			created, err := f.uc.CreatePicking(ctx, testCompanyID, pickingReq(testCustomerID, tc.usage, tc.useDocuments))
			require.NoError(t, err)

			resp, err := f.uc.DonePicking(ctx, testCompanyID, created.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.PickingStateDone, resp.State)
			assert.Empty(t, resp.ETDStatus)
			assert.Zero(t, resp.Folio)
			assert.Empty(t, f.queue.jobs)
		})
	}
}

func TestDonePicking_FalloDeCola_MarcaError(t *testing.T) {
	f := newFixture(true, entity.ETDModelPicking)
	f.queue.err = errors.New("cola cerrada")
	ctx := context.Background()
	created, err := f.uc.CreatePicking(ctx, testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)

	resp, err := f.uc.DonePicking(ctx, testCompanyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ETDStatusError, resp.ETDStatus)

	stored, _ := f.repo.GetByID(ctx, created.ID)
	assert.Equal(t, entity.ETDStatusError, stored.ETDStatus)
}

func TestDonePicking_YaCompletado(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	created, err := f.uc.CreatePicking(ctx, testCompanyID, pickingReq(testCustomerID, entity.LocationUsageCustomer, true))
	require.NoError(t, err)
	_, err = f.uc.DonePicking(ctx, testCompanyID, created.ID)
	require.NoError(t, err)

	_, err = f.uc.DonePicking(ctx, testCompanyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestGetPicking_OtraEmpresa(t *testing.T) {
	f := newFixture(true)
	created, err := f.uc.CreatePicking(context.Background(), testCompanyID, pickingReq("", entity.LocationUsageInternal, false))
	require.NoError(t, err)

	_, err = f.uc.GetPicking(context.Background(), "otra", created.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
