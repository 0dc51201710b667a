package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
	"github.com/jhoicas/sii-etd-api/internal/application/etd"
	"github.com/jhoicas/sii-etd-api/internal/domain"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/domain/sii"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

// InvoiceUseCase facturas con campos SII: creación con clase por defecto,
// reclasificación exenta, validación con firma diferida y notas de crédito.
type InvoiceUseCase struct {
	txRunner     TxRunner
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	companyRepo  repository.CompanyRepository
	classes      ClassLookup
	signQueue    SignQueue
	folios       FolioRanges
	barcode      BarcodeRenderer
	barcodeCfg   BarcodeConfig
	log          zerolog.Logger
	now          func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner TxRunner,
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	companyRepo repository.CompanyRepository,
	classes ClassLookup,
	signQueue SignQueue,
	folios FolioRanges,
	barcode BarcodeRenderer,
	barcodeCfg BarcodeConfig,
	log zerolog.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:     txRunner,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		companyRepo:  companyRepo,
		classes:      classes,
		signQueue:    signQueue,
		folios:       folios,
		barcode:      barcode,
		barcodeCfg:   barcodeCfg,
		log:          log.With().Str("component", "billing.invoice").Logger(),
		now:          time.Now,
	}
}

// CreateInvoice crea la factura en borrador. Sin clase explícita se asigna la
// clase por defecto (33, 39 para clientes con boleta, 61 para notas de crédito);
// si la clase no existe la factura queda sin clase.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, companyID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.CustomerID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	customer, err := uc.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	if customer.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	now := uc.now()
	date := now
	if in.Date != "" {
		if date, err = time.Parse("2006-01-02", in.Date); err != nil {
			return nil, domain.ErrInvalidInput
		}
	}
	term := in.PaymentTerm
	if term == "" {
		term = pkgsii.DefaultPaymentTerm
	}

	inv := &entity.Invoice{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		CustomerID:    customer.ID,
		Type:          in.Type,
		State:         entity.InvoiceStateDraft,
		Date:          date,
		PaymentMethod: in.PaymentMethod,
		PaymentTerm:   term,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := sii.ValidateInvoiceFields(inv); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var class *entity.DocumentClass
	if in.ClassID != "" {
		class, err = uc.classes.GetByID(ctx, in.ClassID)
		if err != nil {
			return nil, err
		}
		if class == nil {
			return nil, domain.ErrInvalidInput
		}
		if !sii.ClassAllowed(entity.ETDModelInvoice, class) {
			return nil, fmt.Errorf("%w: la clase %d no aplica a facturas", domain.ErrInvalidInput, class.Code)
		}
	} else {
		code := sii.DefaultInvoiceClassCode(in.Type, customer.InvoicingPolicy)
		class = uc.classes.FindByCode(ctx, code)
	}
	if class != nil {
		inv.ClassID = class.ID
	}

	lines, err := buildLines(inv.ID, in.Lines)
	if err != nil {
		return nil, err
	}
	applyTotals(inv, lines)
	class = uc.recomputeClass(ctx, inv, class, lines)

	err = uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		return invoiceRepo.ReplaceLines(ctx, inv.ID, lines)
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(inv, customer, class, lines), nil
}

// UpdateLines reemplaza las líneas de una factura en borrador y recalcula totales y clase.
func (uc *InvoiceUseCase) UpdateLines(ctx context.Context, companyID, id string, in dto.UpdateInvoiceLinesRequest) (*dto.InvoiceResponse, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	inv, err := uc.getOwned(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.State != entity.InvoiceStateDraft {
		return nil, domain.ErrInvalidState
	}
	lines, err := buildLines(inv.ID, in.Lines)
	if err != nil {
		return nil, err
	}
	class, err := uc.classes.GetByID(ctx, inv.ClassID)
	if err != nil {
		return nil, err
	}
	applyTotals(inv, lines)
	class = uc.recomputeClass(ctx, inv, class, lines)
	inv.UpdatedAt = uc.now()

	err = uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		if err := invoiceRepo.ReplaceLines(ctx, inv.ID, lines); err != nil {
			return err
		}
		return invoiceRepo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	customer, _ := uc.customerRepo.GetByID(ctx, inv.CustomerID)
	return uc.toResponse(inv, customer, class, lines), nil
}

// recomputeClass reclasifica a la clase exenta equivalente (33→34, 39→41)
// cuando la factura no tiene líneas de impuesto. Devuelve la clase vigente.
func (uc *InvoiceUseCase) recomputeClass(ctx context.Context, inv *entity.Invoice, class *entity.DocumentClass, lines []*entity.InvoiceLine) *entity.DocumentClass {
	if class == nil || len(entity.TaxLines(lines)) > 0 {
		return class
	}
	code, ok := sii.ExemptCode(class.Code)
	if !ok {
		return class
	}
	exempt := uc.classes.FindByCode(ctx, code)
	if exempt == nil {
		inv.ClassID = ""
		return nil
	}
	inv.ClassID = exempt.ID
	return exempt
}

// ValidateInvoice pasa la factura de borrador a abierta. Si la empresa emite DTE
// para facturas de venta reserva folio y encola la firma; reserva y cambio de
// estado van en la misma transacción.
func (uc *InvoiceUseCase) ValidateInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.getOwned(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.State != entity.InvoiceStateDraft {
		return nil, domain.ErrInvalidState
	}
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	class, err := uc.classes.GetByID(ctx, inv.ClassID)
	if err != nil {
		return nil, err
	}

	sign := sii.ShouldSignInvoice(company, inv)
	next := *inv
	next.State = entity.InvoiceStateOpen
	if sign {
		next.ETDStatus = entity.ETDStatusPending
	}
	next.UpdatedAt = uc.now()
	err = uc.txRunner.RunValidation(ctx, func(invoiceRepo repository.InvoiceRepository, companyRepo repository.CompanyRepository) error {
		if sign && class != nil && next.Folio == 0 {
			folio, err := companyRepo.NextFolio(ctx, companyID, class.Code, firstFolio(uc.folios, class.Code))
			if err != nil {
				return fmt.Errorf("reservar folio: %w", err)
			}
			next.Folio = folio
		}
		return invoiceRepo.Update(ctx, &next)
	})
	if err != nil {
		return nil, err
	}
	inv = &next

	if sign {
		uc.enqueueSign(ctx, inv)
	}
	return uc.GetInvoice(ctx, companyID, id)
}

func (uc *InvoiceUseCase) enqueueSign(ctx context.Context, inv *entity.Invoice) {
	job := queue.NewJob(queue.ModelInvoice, inv.ID, inv.CompanyID)
	if err := uc.signQueue.Enqueue(ctx, job); err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("no se pudo encolar la firma")
		inv.ETDStatus = entity.ETDStatusError
		inv.ETDError = "encolar firma: " + err.Error()
		if err := uc.invoiceRepo.Update(context.WithoutCancel(ctx), inv); err != nil {
			uc.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("no se pudo persistir ERROR")
		}
		return
	}
	uc.log.Info().Str("invoice_id", inv.ID).Str("job_id", job.ID).Msg("firma encolada")
}

// RefundInvoices emite un documento de reversa por cada factura. La clase de
// cada reversa es la indicada por la tabla SII para la clase de origen
// (33→61, 61→56, ...); sin correspondencia queda sin clase.
func (uc *InvoiceUseCase) RefundInvoices(ctx context.Context, companyID string, in dto.RefundRequest) ([]*dto.InvoiceResponse, error) {
	if len(in.InvoiceIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	date := now
	if in.Date != "" {
		var err error
		if date, err = time.Parse("2006-01-02", in.Date); err != nil {
			return nil, domain.ErrInvalidInput
		}
	}

	type refundData struct {
		inv   *entity.Invoice
		class *entity.DocumentClass
		lines []*entity.InvoiceLine
	}
	refunds := make([]refundData, 0, len(in.InvoiceIDs))
	for _, id := range in.InvoiceIDs {
		src, err := uc.getOwned(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		if src.State == entity.InvoiceStateDraft || src.State == entity.InvoiceStateCancel {
			return nil, domain.ErrInvalidState
		}
		refundType, ok := sii.RefundType(src.Type)
		if !ok {
			return nil, domain.ErrRefundNotSupported
		}
		srcClass, err := uc.classes.GetByID(ctx, src.ClassID)
		if err != nil {
			return nil, err
		}
		var class *entity.DocumentClass
		if srcClass != nil {
			if code, ok := sii.ReverseCode(srcClass.Code); ok {
				class = uc.classes.FindByCode(ctx, code)
			}
		}

		refund := &entity.Invoice{
			ID:            uuid.New().String(),
			CompanyID:     companyID,
			CustomerID:    src.CustomerID,
			Type:          refundType,
			State:         entity.InvoiceStateDraft,
			Date:          date,
			PaymentMethod: src.PaymentMethod,
			PaymentTerm:   src.PaymentTerm,
			RefundOfID:    src.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if class != nil {
			refund.ClassID = class.ID
		}
		srcLines, err := uc.invoiceRepo.GetLines(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		lines := make([]*entity.InvoiceLine, 0, len(srcLines))
		for i, l := range srcLines {
			desc := l.Description
			if in.Description != "" && i == 0 {
				desc = in.Description
			}
			lines = append(lines, &entity.InvoiceLine{
				ID:          uuid.New().String(),
				InvoiceID:   refund.ID,
				Sequence:    l.Sequence,
				Description: desc,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				TaxRate:     l.TaxRate,
				Subtotal:    l.Subtotal,
			})
		}
		applyTotals(refund, lines)
		refunds = append(refunds, refundData{inv: refund, class: class, lines: lines})
	}

	err := uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		for _, r := range refunds {
			if err := invoiceRepo.Create(ctx, r.inv); err != nil {
				return err
			}
			if err := invoiceRepo.ReplaceLines(ctx, r.inv.ID, r.lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*dto.InvoiceResponse, 0, len(refunds))
	for _, r := range refunds {
		customer, _ := uc.customerRepo.GetByID(ctx, r.inv.CustomerID)
		out = append(out, uc.toResponse(r.inv, customer, r.class, r.lines))
	}
	return out, nil
}

// ReverseDocumentClass clase SII de la reversa de una factura, o nil si no hay correspondencia.
func (uc *InvoiceUseCase) ReverseDocumentClass(ctx context.Context, inv *entity.Invoice) (*entity.DocumentClass, error) {
	class, err := uc.classes.GetByID(ctx, inv.ClassID)
	if err != nil || class == nil {
		return nil, err
	}
	code, ok := sii.ReverseCode(class.Code)
	if !ok {
		return nil, nil
	}
	return uc.classes.FindByCode(ctx, code), nil
}

// GetInvoice devuelve la factura con su imagen de timbre (si tiene timbre).
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.getOwned(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	lines, err := uc.invoiceRepo.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	class, err := uc.classes.GetByID(ctx, inv.ClassID)
	if err != nil {
		return nil, err
	}
	customer, _ := uc.customerRepo.GetByID(ctx, inv.CustomerID)
	resp := uc.toResponse(inv, customer, class, lines)
	resp.SIIBarcodeImg = uc.barcodeImage(inv)
	return resp, nil
}

// barcodeImage imagen del timbre en base64; vacío si no hay timbre o falla el render.
func (uc *InvoiceUseCase) barcodeImage(inv *entity.Invoice) string {
	if inv.SIIBarcode == "" {
		return ""
	}
	img, err := uc.barcode.RenderBase64(inv.SIIBarcode, uc.barcodeCfg.Ratio)
	if err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("no se pudo generar la imagen PDF417")
		return ""
	}
	return img
}

// BarcodeImage PNG del timbre con la proporción indicada (cero = valor por defecto).
func (uc *InvoiceUseCase) BarcodeImage(ctx context.Context, companyID, id string, ratio int) ([]byte, error) {
	inv, err := uc.getOwned(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.SIIBarcode == "" {
		return nil, domain.ErrNoBarcode
	}
	if ratio <= 0 {
		ratio = uc.barcodeCfg.Ratio
	}
	return uc.barcode.Render(inv.SIIBarcode, ratio)
}

// firstFolio inicio del rango CAF para el código; 1 sin CAF cargado.
func firstFolio(folios FolioRanges, code int) int64 {
	if folios == nil {
		return 1
	}
	if f := folios.FirstFolio(code); f > 0 {
		return f
	}
	return 1
}

func (uc *InvoiceUseCase) getOwned(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

// taxRateDecimal acepta tasa en fracción (0.19) o porcentaje (19).
func taxRateDecimal(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(decimal.NewFromInt(100))
	}
	return rate
}

func buildLines(invoiceID string, in []dto.InvoiceLineRequest) ([]*entity.InvoiceLine, error) {
	lines := make([]*entity.InvoiceLine, 0, len(in))
	for i, l := range in {
		if !l.Quantity.IsPositive() || l.UnitPrice.IsNegative() || l.TaxRate.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		lines = append(lines, &entity.InvoiceLine{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			Sequence:    i + 1,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     taxRateDecimal(l.TaxRate),
			Subtotal:    l.Quantity.Mul(l.UnitPrice).Round(0),
		})
	}
	return lines, nil
}

// applyTotals montos en pesos: neto (afecto), exento, IVA y total.
func applyTotals(inv *entity.Invoice, lines []*entity.InvoiceLine) {
	var net, exempt, tax decimal.Decimal
	for _, l := range lines {
		if l.TaxRate.IsPositive() {
			net = net.Add(l.Subtotal)
		} else {
			exempt = exempt.Add(l.Subtotal)
		}
	}
	for _, t := range entity.TaxLines(lines) {
		tax = tax.Add(t.Amount)
	}
	inv.NetTotal = net
	inv.ExemptTotal = exempt
	inv.TaxTotal = tax
	inv.GrandTotal = net.Add(exempt).Add(tax)
}

func (uc *InvoiceUseCase) toResponse(inv *entity.Invoice, customer *entity.Customer, class *entity.DocumentClass, lines []*entity.InvoiceLine) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:            inv.ID,
		CompanyID:     inv.CompanyID,
		CustomerID:    inv.CustomerID,
		Type:          inv.Type,
		State:         inv.State,
		Class:         etd.ToClassResponse(class),
		Folio:         inv.Folio,
		Date:          inv.Date.Format("2006-01-02"),
		NetTotal:      inv.NetTotal,
		ExemptTotal:   inv.ExemptTotal,
		TaxTotal:      inv.TaxTotal,
		GrandTotal:    inv.GrandTotal,
		PaymentMethod: inv.PaymentMethod,
		PaymentTerm:   inv.PaymentTerm,
		SIIBarcode:    inv.SIIBarcode,
		ETDStatus:     inv.ETDStatus,
		ETDError:      inv.ETDError,
		RefundOfID:    inv.RefundOfID,
		Lines:         make([]dto.InvoiceLineResponse, 0, len(lines)),
	}
	if customer != nil {
		resp.CustomerName = customer.Name
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.InvoiceLineResponse{
			ID:          l.ID,
			Sequence:    l.Sequence,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			Subtotal:    l.Subtotal,
		})
	}
	return resp
}

// IsInputError indica si el error corresponde a datos inválidos del cliente.
func IsInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, sii.ErrInvalidInvoice)
}
