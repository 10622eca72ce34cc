package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

// Prefijos de lote para el correlativo diario de bajas.
const (
	batchVoided  = "RA"
	batchSummary = "RC"
)

// VoidDocumentUseCase comunica la baja de un comprobante aceptado.
// El resultado final llega de forma asíncrona vía TicketPoller.
type VoidDocumentUseCase struct {
	txRunner     DocumentTxRunner
	documentRepo repository.DocumentRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	adapters     AdapterResolver
	events       events.Publisher
	now          func() time.Time
	log          zerolog.Logger
}

// NewVoidDocumentUseCase construye el caso de uso.
func NewVoidDocumentUseCase(
	txRunner DocumentTxRunner,
	documentRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	adapters AdapterResolver,
	publisher events.Publisher,
	log zerolog.Logger,
) *VoidDocumentUseCase {
	return &VoidDocumentUseCase{
		txRunner:     txRunner,
		documentRepo: documentRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		adapters:     adapters,
		events:       publisher,
		now:          time.Now,
		log:          log,
	}
}

// Void verifica el plazo, asigna el número de lote RA/RC del día y envía la comunicación.
func (uc *VoidDocumentUseCase) Void(ctx context.Context, companyID, documentID string, in dto.VoidDocumentRequest) (*dto.DocumentStatusDTO, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.ErrInvalidInput
	}

	doc, err := uc.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	now := uc.now()
	if err := domsunat.CanVoid(doc, now); err != nil {
		return nil, err
	}
	company, err := resolveParties(ctx, uc.companyRepo, uc.customerRepo, doc)
	if err != nil {
		return nil, err
	}
	adapter, err := uc.adapters.AdapterFor(ctx, company)
	if err != nil {
		return nil, err
	}

	var batch int64
	err = uc.txRunner.RunDocument(ctx, func(allocator repository.CorrelativeAllocator, _ repository.DocumentRepository) error {
		var err error
		batch, err = allocator.Next(ctx, companyID, voidBatchKind(doc), now.Format("20060102"))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("correlativo de baja: %w", err)
	}

	log := uc.log.With().Str("document_id", doc.ID).Str("company_id", companyID).
		Str("provider", adapter.Name()).Logger()

	result, err := adapter.VoidDocument(ctx, &entity.VoidRequest{
		Document:    doc,
		Reason:      reason,
		BatchNumber: batch,
		IssueDate:   now,
	})
	if err != nil {
		return nil, err
	}

	out := &dto.DocumentStatusDTO{
		ID:              doc.ID,
		Status:          doc.Status,
		ResponseCode:    result.ResponseCode,
		ResponseMessage: result.ResponseMessage,
		Notes:           result.Notes,
		Ticket:          doc.Ticket,
	}

	switch result.Status {
	case entity.DocumentStatusPending:
		doc.VoidTicket = result.Ticket
		doc.VoidReason = reason
	case entity.DocumentStatusAccepted, entity.DocumentStatusObserved:
		voided, err := domsunat.Transition(doc.Status, domsunat.TriggerVoid)
		if err != nil {
			return nil, err
		}
		doc.Status = voided
		doc.VoidTicket = result.Ticket
		doc.VoidReason = reason
	default:
		// rechazo o excepción: el comprobante sigue aceptado y puede reintentarse
		log.Warn().Str("status", result.Status).Str("code", result.ResponseCode).
			Msg("comunicación de baja no recibida")
		return out, nil
	}

	doc.UpdatedAt = now
	if err := uc.documentRepo.UpdateSubmission(ctx, doc, entity.DocumentStatusAccepted); err != nil {
		return nil, fmt.Errorf("persistir baja: %w", err)
	}
	log.Info().Str("void_ticket", doc.VoidTicket).Str("status", doc.Status).Msg("baja comunicada")

	eventType := events.TypeVoidRequested
	if doc.Status == entity.DocumentStatusVoided {
		eventType = events.TypeStatusChanged
	}
	publish(uc.events, doc, eventType)

	out.Status = doc.Status
	out.VoidTicket = doc.VoidTicket
	return out, nil
}

// voidBatchKind: las boletas y sus notas se anulan por resumen diario (RC).
func voidBatchKind(doc *entity.Document) string {
	if doc.IsReceiptFamily() {
		return batchSummary
	}
	return batchVoided
}
