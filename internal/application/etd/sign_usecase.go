package etd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	infrasii "github.com/jhoicas/sii-etd-api/internal/infrastructure/sii"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

// SignUseCase firma documentos en segundo plano: TED → DTE → XMLDSig → Update DB.
// Es el Handler de la cola de trabajos.
//
// Sin CAFs cargados, o en ambiente de certificación, un folio sin CAF deja el TED
// sin FRMT; en producción con CAFs cargados el documento queda en ERROR. Sin
// certificado el DTE queda sin ds:Signature y el documento igual queda SIGNED.
type SignUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	pickingRepo  repository.PickingRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	classRepo    repository.DocumentClassRepository
	ted          *infrasii.TEDBuilder
	dte          *infrasii.DTEBuilder
	signer       *infrasii.XMLSigner
	cafs         *infrasii.CAFStore
	environment  string
	log          zerolog.Logger
	now          func() time.Time
}

// NewSignUseCase construye el caso de uso con todas sus dependencias.
func NewSignUseCase(
	invoiceRepo repository.InvoiceRepository,
	pickingRepo repository.PickingRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	classRepo repository.DocumentClassRepository,
	ted *infrasii.TEDBuilder,
	dte *infrasii.DTEBuilder,
	signer *infrasii.XMLSigner,
	cafs *infrasii.CAFStore,
	environment string,
	log zerolog.Logger,
) *SignUseCase {
	return &SignUseCase{
		invoiceRepo:  invoiceRepo,
		pickingRepo:  pickingRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		classRepo:    classRepo,
		ted:          ted,
		dte:          dte,
		signer:       signer,
		cafs:         cafs,
		environment:  environment,
		log:          log.With().Str("component", "etd.sign").Logger(),
		now:          time.Now,
	}
}

// ErrFolioNotAuthorized ningún CAF cargado autoriza el folio del documento.
var ErrFolioNotAuthorized = errors.New("etd: folio sin CAF que lo autorice")

// Handle implementa queue.Handler.
func (uc *SignUseCase) Handle(ctx context.Context, job queue.Job) error {
	switch job.Model {
	case queue.ModelInvoice:
		return uc.SignInvoice(ctx, job.RecordID)
	case queue.ModelPicking:
		return uc.SignPicking(ctx, job.RecordID)
	}
	return fmt.Errorf("etd: modelo no soportado %q", job.Model)
}

// SignInvoice genera timbre y DTE de una factura validada.
func (uc *SignUseCase) SignInvoice(ctx context.Context, id string) error {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("etd: obtener factura %s: %w", id, err)
	}
	if inv == nil {
		return fmt.Errorf("etd: factura %s no encontrada", id)
	}
	if inv.ETDStatus == entity.ETDStatusSigned {
		uc.log.Info().Str("invoice_id", id).Msg("factura ya firmada, saltando")
		return nil
	}

	fail := func(step string, cause error) error {
		inv.ETDStatus = entity.ETDStatusError
		inv.ETDError = step + ": " + cause.Error()
		inv.UpdatedAt = uc.now()
		if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
			uc.log.Error().Err(err).Str("invoice_id", id).Msg("no se pudo persistir ERROR")
		}
		return fmt.Errorf("etd: factura %s en %s: %w", id, step, cause)
	}

	company, customer, class, err := uc.loadParties(ctx, inv.CompanyID, inv.CustomerID, inv.ClassID)
	if err != nil {
		return fail("fetch", err)
	}
	if inv.Folio <= 0 {
		return fail("folio", fmt.Errorf("factura sin folio"))
	}
	lines, err := uc.invoiceRepo.GetLines(ctx, id)
	if err != nil {
		return fail("fetch-lines", err)
	}

	issuer, receiver, err := parties(company, customer)
	if err != nil {
		return fail("rut", err)
	}
	firstItem := ""
	if len(lines) > 0 {
		firstItem = lines[0].Description
	}
	tedXML, err := uc.stamp(infrasii.TEDData{
		IssuerRUT:    issuer.RUT,
		Code:         class.Code,
		Folio:        inv.Folio,
		IssueDate:    inv.Date,
		ReceiverRUT:  receiver.RUT,
		ReceiverName: receiver.Name,
		Total:        inv.GrandTotal.Round(0).IntPart(),
		FirstItem:    firstItem,
		Timestamp:    uc.now(),
	})
	if err != nil {
		return fail("ted", err)
	}

	dteLines := make([]infrasii.DTELine, 0, len(lines))
	for _, l := range lines {
		dteLines = append(dteLines, infrasii.DTELine{
			Name:      l.Description,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Amount:    l.Subtotal,
			Exempt:    !l.TaxRate.IsPositive(),
		})
	}
	xmlBytes, err := uc.buildAndSign(infrasii.DTEData{
		Code:          class.Code,
		Folio:         inv.Folio,
		IssueDate:     inv.Date,
		PaymentTerm:   inv.PaymentTerm,
		PaymentMethod: inv.PaymentMethod,
		Issuer:        issuer,
		Receiver:      receiver,
		Totals: infrasii.DTETotals{
			Net:    inv.NetTotal.Round(0).IntPart(),
			Exempt: inv.ExemptTotal.Round(0).IntPart(),
			Tax:    inv.TaxTotal.Round(0).IntPart(),
			Total:  inv.GrandTotal.Round(0).IntPart(),
		},
		Lines:    dteLines,
		TED:      tedXML,
		SignedAt: uc.now(),
	})
	if err != nil {
		return fail("dte", err)
	}

	inv.SIIBarcode = tedXML
	inv.ETDXML = string(xmlBytes)
	inv.ETDStatus = entity.ETDStatusSigned
	inv.ETDError = ""
	inv.UpdatedAt = uc.now()
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return fmt.Errorf("etd: persistir factura firmada %s: %w", id, err)
	}
	uc.log.Info().Str("invoice_id", id).Int("code", class.Code).Int64("folio", inv.Folio).Msg("factura firmada")
	return nil
}

// SignPicking genera timbre y guía de despacho de un despacho completado.
func (uc *SignUseCase) SignPicking(ctx context.Context, id string) error {
	p, err := uc.pickingRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("etd: obtener despacho %s: %w", id, err)
	}
	if p == nil {
		return fmt.Errorf("etd: despacho %s no encontrado", id)
	}
	if p.ETDStatus == entity.ETDStatusSigned {
		uc.log.Info().Str("picking_id", id).Msg("despacho ya firmado, saltando")
		return nil
	}

	fail := func(step string, cause error) error {
		p.ETDStatus = entity.ETDStatusError
		p.ETDError = step + ": " + cause.Error()
		p.UpdatedAt = uc.now()
		if err := uc.pickingRepo.Update(ctx, p); err != nil {
			uc.log.Error().Err(err).Str("picking_id", id).Msg("no se pudo persistir ERROR")
		}
		return fmt.Errorf("etd: despacho %s en %s: %w", id, step, cause)
	}

	company, customer, class, err := uc.loadParties(ctx, p.CompanyID, p.CustomerID, p.ClassID)
	if err != nil {
		return fail("fetch", err)
	}
	if p.Folio <= 0 {
		return fail("folio", fmt.Errorf("despacho sin folio"))
	}
	issuer, receiver, err := parties(company, customer)
	if err != nil {
		return fail("rut", err)
	}
	if p.DestinationAddress != "" {
		receiver.Address = p.DestinationAddress
	}

	issueDate := p.ScheduledDate
	if p.DoneAt != nil {
		issueDate = *p.DoneAt
	}
	firstItem := ""
	if len(p.Moves) > 0 {
		firstItem = p.Moves[0].Description
	}
	tedXML, err := uc.stamp(infrasii.TEDData{
		IssuerRUT:    issuer.RUT,
		Code:         class.Code,
		Folio:        p.Folio,
		IssueDate:    issueDate,
		ReceiverRUT:  receiver.RUT,
		ReceiverName: receiver.Name,
		FirstItem:    firstItem,
		Timestamp:    uc.now(),
	})
	if err != nil {
		return fail("ted", err)
	}

	dteLines := make([]infrasii.DTELine, 0, len(p.Moves))
	for _, m := range p.Moves {
		dteLines = append(dteLines, infrasii.DTELine{Name: m.Description, Quantity: decimal.NewFromInt(m.Quantity)})
	}
	xmlBytes, err := uc.buildAndSign(infrasii.DTEData{
		Code:         class.Code,
		Folio:        p.Folio,
		IssueDate:    issueDate,
		TransferType: transferTypeSale,
		Issuer:       issuer,
		Receiver:     receiver,
		Lines:        dteLines,
		TED:          tedXML,
		SignedAt:     uc.now(),
	})
	if err != nil {
		return fail("dte", err)
	}

	p.SIIBarcode = tedXML
	p.ETDXML = string(xmlBytes)
	p.ETDStatus = entity.ETDStatusSigned
	p.ETDError = ""
	p.UpdatedAt = uc.now()
	if err := uc.pickingRepo.Update(ctx, p); err != nil {
		return fmt.Errorf("etd: persistir despacho firmado %s: %w", id, err)
	}
	uc.log.Info().Str("picking_id", id).Int64("folio", p.Folio).Msg("guía de despacho firmada")
	return nil
}

// IndTraslado 1: operación constituye venta.
const transferTypeSale = "1"

func (uc *SignUseCase) loadParties(ctx context.Context, companyID, customerID, classID string) (*entity.Company, *entity.Customer, *entity.DocumentClass, error) {
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil || company == nil {
		return nil, nil, nil, fmt.Errorf("empresa %s no encontrada: %v", companyID, err)
	}
	var customer *entity.Customer
	if customerID != "" {
		customer, err = uc.customerRepo.GetByID(ctx, customerID)
		if err != nil || customer == nil {
			return nil, nil, nil, fmt.Errorf("cliente %s no encontrado: %v", customerID, err)
		}
	}
	if classID == "" {
		return nil, nil, nil, fmt.Errorf("documento sin clase SII")
	}
	class, err := uc.classRepo.GetByID(ctx, classID)
	if err != nil || class == nil {
		return nil, nil, nil, fmt.Errorf("clase %s no encontrada: %v", classID, err)
	}
	return company, customer, class, nil
}

// parties arma emisor y receptor. Sin cliente el receptor es el propio emisor
// (traslados internos).
func parties(company *entity.Company, customer *entity.Customer) (infrasii.DTEParty, infrasii.DTEParty, error) {
	issuerRUT, err := pkgsii.NormalizeRUT(company.RUT)
	if err != nil {
		return infrasii.DTEParty{}, infrasii.DTEParty{}, fmt.Errorf("RUT emisor: %w", err)
	}
	issuer := infrasii.DTEParty{RUT: issuerRUT, Name: company.Name, Activity: company.Activity, Address: company.Address}
	if customer == nil {
		return issuer, issuer, nil
	}
	receiverRUT, err := pkgsii.NormalizeRUT(customer.RUT)
	if err != nil {
		return infrasii.DTEParty{}, infrasii.DTEParty{}, fmt.Errorf("RUT receptor: %w", err)
	}
	return issuer, infrasii.DTEParty{RUT: receiverRUT, Name: customer.Name, Activity: customer.Activity}, nil
}

func (uc *SignUseCase) stamp(d infrasii.TEDData) (string, error) {
	caf := uc.cafs.Find(d.Code, d.Folio)
	if caf == nil {
		if !uc.cafs.Empty() && uc.environment != pkgsii.EnvironmentCertification {
			return "", fmt.Errorf("%w: código %d folio %d", ErrFolioNotAuthorized, d.Code, d.Folio)
		}
		uc.log.Warn().Int("code", d.Code).Int64("folio", d.Folio).Msg("sin CAF para el folio: TED sin firma")
	}
	return uc.ted.Build(d, caf)
}

func (uc *SignUseCase) buildAndSign(d infrasii.DTEData) ([]byte, error) {
	xmlBytes, err := uc.dte.Build(d)
	if err != nil {
		return nil, err
	}
	if !uc.signer.Enabled() {
		uc.log.Warn().Int("code", d.Code).Int64("folio", d.Folio).Msg("sin certificado: DTE sin firma XMLDSig")
		return xmlBytes, nil
	}
	return uc.signer.Sign(xmlBytes)
}
