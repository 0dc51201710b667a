package billing_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sii-etd-api/internal/application/billing"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

const (
	testCompanyID  = "company-1"
	testCustomerID = "customer-1"
)

type fakeInvoiceRepo struct {
	mu         sync.Mutex
	invoices   map[string]*entity.Invoice
	lines      map[string][]*entity.InvoiceLine
	failUpdate error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: map[string]*entity.Invoice{}, lines: map[string][]*entity.InvoiceLine{}}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.invoices[inv.ID]; !ok {
		return errors.New("no existe")
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) ReplaceLines(_ context.Context, id string, lines []*entity.InvoiceLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[id] = lines
	return nil
}

func (r *fakeInvoiceRepo) GetLines(_ context.Context, id string) ([]*entity.InvoiceLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines[id], nil
}

// fakeTx simula el rollback de folios cuando el callback falla.
type fakeTx struct {
	repo      *fakeInvoiceRepo
	companies *fakeCompanyRepo
}

func (t fakeTx) RunInvoices(_ context.Context, fn func(repository.InvoiceRepository) error) error {
	return fn(t.repo)
}

func (t fakeTx) RunValidation(_ context.Context, fn func(repository.InvoiceRepository, repository.CompanyRepository) error) error {
	saved := maps.Clone(t.companies.folios)
	if err := fn(t.repo, t.companies); err != nil {
		t.companies.folios = saved
		return err
	}
	return nil
}

type fakeCustomerRepo struct{ customers map[string]*entity.Customer }

func (r fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.customers[id], nil
}

type fakeCompanyRepo struct {
	company *entity.Company
	folios  map[int]int64
}

func (r *fakeCompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	if r.company == nil || r.company.ID != id {
		return nil, nil
	}
	return r.company, nil
}

func (r *fakeCompanyRepo) NextFolio(_ context.Context, _ string, code int, first int64) (int64, error) {
	r.folios[code] = max(r.folios[code]+1, first)
	return r.folios[code], nil
}

type fakeFolios map[int]int64

func (f fakeFolios) FirstFolio(code int) int64 { return f[code] }

// fakeClasses catálogo SII en memoria; los códigos ausentes simulan clases no cargadas.
type fakeClasses struct {
	byID map[string]*entity.DocumentClass
}

func newFakeClasses(codes ...int) *fakeClasses {
	f := &fakeClasses{byID: map[string]*entity.DocumentClass{}}
	for _, code := range codes {
		f.byID[classID(code)] = &entity.DocumentClass{
			ID: classID(code), Code: code, Name: pkgsii.DocumentClassNames[code], DocumentType: documentType(code),
			Active: true, Electronic: true,
		}
	}
	return f
}

func classID(code int) string { return fmt.Sprintf("class-%d", code) }

func documentType(code int) string {
	switch code {
	case 52:
		return pkgsii.DocumentTypeStockPicking
	case 55, 56:
		return pkgsii.DocumentTypeDebitNote
	case 60, 61:
		return pkgsii.DocumentTypeCreditNote
	}
	return pkgsii.DocumentTypeInvoice
}

func (f *fakeClasses) FindByCode(_ context.Context, code int, _ ...string) *entity.DocumentClass {
	return f.byID[classID(code)]
}

func (f *fakeClasses) GetByID(_ context.Context, id string) (*entity.DocumentClass, error) {
	if id == "" {
		return nil, nil
	}
	return f.byID[id], nil
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

type fakeBarcode struct{ err error }

func (b fakeBarcode) Render(payload string, _ int) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte("png:" + payload), nil
}

func (b fakeBarcode) RenderBase64(payload string, _ int) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return "b64:" + payload, nil
}

type fixture struct {
	invoices  *fakeInvoiceRepo
	companies *fakeCompanyRepo
	customers fakeCustomerRepo
	classes   *fakeClasses
	queue     *fakeQueue
	folios    fakeFolios
	barcode   *fakeBarcode
	uc        *billing.InvoiceUseCase
}

func newFixture(policy string, etdModels []string, codes ...int) *fixture {
	f := &fixture{
		invoices: newFakeInvoiceRepo(),
		companies: &fakeCompanyRepo{
			company: &entity.Company{ID: testCompanyID, Name: "Empresa", RUT: "76086428-5", ETDModels: etdModels},
			folios:  map[int]int64{},
		},
		customers: fakeCustomerRepo{customers: map[string]*entity.Customer{
			testCustomerID: {ID: testCustomerID, CompanyID: testCompanyID, Name: "Cliente", RUT: "11111111-1", InvoicingPolicy: policy},
		}},
		classes: newFakeClasses(codes...),
		queue:   &fakeQueue{},
		folios:  fakeFolios{},
		barcode: &fakeBarcode{},
	}
	f.uc = billing.NewInvoiceUseCase(
		fakeTx{repo: f.invoices, companies: f.companies}, f.invoices, f.customers, f.companies, f.classes, f.queue,
		f.folios, f.barcode, billing.BarcodeConfig{Ratio: 3}, zerolog.Nop(),
	)
	return f
}
