package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
	"github.com/jhoicas/sii-etd-api/internal/application/etd"
	"github.com/jhoicas/sii-etd-api/internal/domain"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	"github.com/jhoicas/sii-etd-api/internal/domain/repository"
	"github.com/jhoicas/sii-etd-api/internal/domain/sii"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

// PickingUseCase despachos de bodega con guía de despacho electrónica (52).
type PickingUseCase struct {
	pickingRepo  repository.PickingRepository
	customerRepo repository.CustomerRepository
	companyRepo  repository.CompanyRepository
	classes      ClassLookup
	signQueue    SignQueue
	folios       FolioRanges
	log          zerolog.Logger
	now          func() time.Time
}

// NewPickingUseCase construye el caso de uso.
func NewPickingUseCase(
	pickingRepo repository.PickingRepository,
	customerRepo repository.CustomerRepository,
	companyRepo repository.CompanyRepository,
	classes ClassLookup,
	signQueue SignQueue,
	folios FolioRanges,
	log zerolog.Logger,
) *PickingUseCase {
	return &PickingUseCase{
		pickingRepo:  pickingRepo,
		customerRepo: customerRepo,
		companyRepo:  companyRepo,
		classes:      classes,
		signQueue:    signQueue,
		folios:       folios,
		log:          log.With().Str("component", "stock.picking").Logger(),
		now:          time.Now,
	}
}

// CreatePicking crea el despacho en borrador. Con partner la clase es siempre la
// guía de despacho (52, stock_picking), o ninguna si no existe; sin partner se
// respeta la clase explícita si pertenece al dominio de despachos.
func (uc *PickingUseCase) CreatePicking(ctx context.Context, companyID string, in dto.CreatePickingRequest) (*dto.PickingResponse, error) {
	if in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.CustomerID != "" {
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
	}

	now := uc.now()
	scheduled := now
	if in.ScheduledDate != "" {
		var err error
		if scheduled, err = time.Parse("2006-01-02", in.ScheduledDate); err != nil {
			return nil, domain.ErrInvalidInput
		}
	}

	p := &entity.Picking{
		ID:                 uuid.New().String(),
		CompanyID:          companyID,
		CustomerID:         in.CustomerID,
		Name:               in.Name,
		State:              entity.PickingStateDraft,
		LocationDestUsage:  in.LocationDestUsage,
		UseDocuments:       in.UseDocuments,
		DestinationAddress: in.DestinationAddress,
		ScheduledDate:      scheduled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, m := range in.Moves {
		if m.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		p.Moves = append(p.Moves, &entity.PickingMove{
			ID:          uuid.New().String(),
			PickingID:   p.ID,
			Description: m.Description,
			Quantity:    m.Quantity,
		})
	}

	var class *entity.DocumentClass
	switch {
	case in.CustomerID != "":
		class = uc.classes.FindByCode(ctx, sii.PickingClassCode, pkgsii.DocumentTypeStockPicking)
	case in.ClassID != "":
		var err error
		if class, err = uc.classes.GetByID(ctx, in.ClassID); err != nil {
			return nil, err
		}
		if class == nil {
			return nil, domain.ErrInvalidInput
		}
		if !sii.ClassAllowed(entity.ETDModelPicking, class) {
			return nil, fmt.Errorf("%w: la clase %d no aplica a despachos", domain.ErrInvalidInput, class.Code)
		}
	}
	if class != nil {
		p.ClassID = class.ID
	}

	if err := uc.pickingRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return toPickingResponse(p, class), nil
}

// GetPicking devuelve el despacho con su clase SII.
func (uc *PickingUseCase) GetPicking(ctx context.Context, companyID, id string) (*dto.PickingResponse, error) {
	p, err := uc.getOwned(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	class, err := uc.classes.GetByID(ctx, p.ClassID)
	if err != nil {
		return nil, err
	}
	return toPickingResponse(p, class), nil
}

// DonePicking completa el despacho, asigna folio y encola la firma de la guía
// cuando el despacho emite documento hacia un cliente.
func (uc *PickingUseCase) DonePicking(ctx context.Context, companyID, id string) (*dto.PickingResponse, error) {
	p, err := uc.getOwned(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if p.State == entity.PickingStateDone || p.State == entity.PickingStateCancel {
		return nil, domain.ErrInvalidState
	}
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	class, err := uc.classes.GetByID(ctx, p.ClassID)
	if err != nil {
		return nil, err
	}

	sign := sii.ShouldSignPicking(company, p)
	if sign && class != nil && p.Folio == 0 {
		first := int64(1)
		if uc.folios != nil && uc.folios.FirstFolio(class.Code) > 0 {
			first = uc.folios.FirstFolio(class.Code)
		}
		folio, err := uc.companyRepo.NextFolio(ctx, companyID, class.Code, first)
		if err != nil {
			return nil, fmt.Errorf("reservar folio: %w", err)
		}
		p.Folio = folio
	}

	now := uc.now()
	p.State = entity.PickingStateDone
	p.DoneAt = &now
	p.UpdatedAt = now
	if sign {
		p.ETDStatus = entity.ETDStatusPending
	}
	if err := uc.pickingRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	if sign {
		job := queue.NewJob(queue.ModelPicking, p.ID, companyID)
		if err := uc.signQueue.Enqueue(ctx, job); err != nil {
			uc.log.Error().Err(err).Str("picking_id", p.ID).Msg("no se pudo encolar la firma")
			p.ETDStatus = entity.ETDStatusError
			p.ETDError = "encolar firma: " + err.Error()
			if err := uc.pickingRepo.Update(context.WithoutCancel(ctx), p); err != nil {
				uc.log.Error().Err(err).Str("picking_id", p.ID).Msg("no se pudo persistir ERROR")
			}
		} else {
			uc.log.Info().Str("picking_id", p.ID).Str("job_id", job.ID).Msg("firma encolada")
		}
	}
	return toPickingResponse(p, class), nil
}

func (uc *PickingUseCase) getOwned(ctx context.Context, companyID, id string) (*entity.Picking, error) {
	p, err := uc.pickingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if p.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func toPickingResponse(p *entity.Picking, class *entity.DocumentClass) *dto.PickingResponse {
	resp := &dto.PickingResponse{
		ID:                p.ID,
		CompanyID:         p.CompanyID,
		CustomerID:        p.CustomerID,
		Name:              p.Name,
		State:             p.State,
		Class:             etd.ToClassResponse(class),
		Folio:             p.Folio,
		LocationDestUsage: p.LocationDestUsage,
		UseDocuments:      p.UseDocuments,
		ScheduledDate:     p.ScheduledDate.Format("2006-01-02"),
		SIIBarcode:        p.SIIBarcode,
		ETDStatus:         p.ETDStatus,
		ETDError:          p.ETDError,
		Moves:             make([]dto.PickingMoveResponse, 0, len(p.Moves)),
	}
	for _, m := range p.Moves {
		resp.Moves = append(resp.Moves, dto.PickingMoveResponse{ID: m.ID, Description: m.Description, Quantity: m.Quantity})
	}
	return resp
}
