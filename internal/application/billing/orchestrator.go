package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

// OrchestratorConfig dimensiona el pool de envíos.
type OrchestratorConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// SubmissionOrchestrator orquesta el envío de un comprobante ya registrado:
//
//	validación → adaptador (XML → firma → ZIP → envío) → clasificación → persistencia → evento
//
// ProcessAsync encola en un WorkerPool acotado; cada trabajo corre con su propio timeout,
// desacoplado del ciclo HTTP.
type SubmissionOrchestrator struct {
	documentRepo repository.DocumentRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	adapters     AdapterResolver
	events       events.Publisher
	pool         *WorkerPool
	now          func() time.Time
	log          zerolog.Logger
}

// NewSubmissionOrchestrator construye el orquestador. Start debe llamarse antes de ProcessAsync.
func NewSubmissionOrchestrator(
	documentRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	adapters AdapterResolver,
	publisher events.Publisher,
	cfg OrchestratorConfig,
	log zerolog.Logger,
) *SubmissionOrchestrator {
	o := &SubmissionOrchestrator{
		documentRepo: documentRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		adapters:     adapters,
		events:       publisher,
		now:          time.Now,
		log:          log.With().Str("component", "orchestrator").Logger(),
	}
	o.pool = NewWorkerPool(cfg.Workers, cfg.QueueSize, cfg.JobTimeout, o.handle, log)
	return o
}

// Start lanza los workers del pool.
func (o *SubmissionOrchestrator) Start() { o.pool.Start() }

// Stop espera a que terminen los envíos en curso.
func (o *SubmissionOrchestrator) Stop() { o.pool.Stop() }

// ProcessAsync encola el envío de un comprobante en draft o exception.
func (o *SubmissionOrchestrator) ProcessAsync(documentID string) error {
	return o.pool.Submit(SubmissionJob{DocumentID: documentID, EnqueuedAt: o.now()})
}

// handle es el trabajo del pool: siempre termina persistiendo un estado.
func (o *SubmissionOrchestrator) handle(ctx context.Context, job SubmissionJob) {
	log := o.log.With().Str("document_id", job.DocumentID).Logger()

	doc, err := o.documentRepo.GetByID(ctx, job.DocumentID)
	if err != nil || doc == nil {
		log.Error().Err(err).Msg("comprobante no encontrado")
		return
	}
	if _, err := o.process(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflict) {
			log.Warn().Err(err).Str("status", doc.Status).Msg("estado inesperado (ya procesado?), saltando")
			return
		}
		log.Error().Err(err).Msg("envío abortado antes de la red")
		o.markFailed(ctx, doc, err)
	}
}

// Submit envía de forma síncrona (reenvío manual desde la API).
func (o *SubmissionOrchestrator) Submit(ctx context.Context, companyID, documentID string) (*dto.DocumentStatusDTO, error) {
	doc, err := o.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if !domsunat.CanTransition(doc.Status, domsunat.TriggerSubmit) {
		return nil, fmt.Errorf("%w: el comprobante está en estado %s", domain.ErrConflict, doc.Status)
	}
	if _, err := o.process(ctx, doc); err != nil {
		return nil, err
	}
	return statusDTO(doc), nil
}

// process resuelve emisor y cliente, valida y envía. Devuelve error solo si el
// comprobante no llegó a enviarse (validación, configuración o transición inválida).
func (o *SubmissionOrchestrator) process(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	if !domsunat.CanTransition(doc.Status, domsunat.TriggerSubmit) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTransition, doc.Status)
	}
	company, err := resolveParties(ctx, o.companyRepo, o.customerRepo, doc)
	if err != nil {
		return nil, err
	}
	if err := domsunat.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := domsunat.EnsureTotals(doc); err != nil {
		return nil, err
	}
	adapter, err := o.adapters.AdapterFor(ctx, company)
	if err != nil {
		return nil, err
	}

	// draft/exception → pending es un compare-and-swap: un solo envío gana el comprobante
	previous := doc.Status
	pending, err := domsunat.Transition(previous, domsunat.TriggerSubmit)
	if err != nil {
		return nil, err
	}
	doc.Status = pending
	doc.UpdatedAt = o.now()
	if err := o.documentRepo.UpdateSubmission(ctx, doc, previous); err != nil {
		doc.Status = previous
		return nil, fmt.Errorf("tomar el envío: %w", err)
	}

	log := o.log.With().Str("document_id", doc.ID).Str("company_id", doc.CompanyID).
		Str("provider", adapter.Name()).Logger()
	log.Debug().Str("number", doc.FullNumber()).Msg("enviando comprobante")

	result, sendErr := adapter.SendDocument(ctx, doc)
	if sendErr != nil {
		// construcción, certificado, firma o ZIP: no salió nada hacia SUNAT
		log.Error().Err(sendErr).Msg("falla previa al envío")
		o.release(ctx, doc, previous)
		return nil, sendErr
	}

	if err := o.applyResult(ctx, doc, result, pending); err != nil {
		log.Error().Err(err).Msg("no se pudo persistir el resultado")
		return doc, nil
	}
	log.Info().Str("status", doc.Status).Str("code", doc.ResponseCode).Msg("comprobante procesado")
	return doc, nil
}

// release devuelve el comprobante al estado previo al envío (pending → previous).
func (o *SubmissionOrchestrator) release(ctx context.Context, doc *entity.Document, previous string) {
	doc.Status = previous
	doc.UpdatedAt = o.now()
	if err := o.documentRepo.UpdateSubmission(ctx, doc, entity.DocumentStatusPending); err != nil {
		o.log.Error().Err(err).Str("document_id", doc.ID).Msg("no se pudo liberar el comprobante")
	}
}

// applyResult clasifica el resultado, lo copia al comprobante, persiste y emite el evento.
func (o *SubmissionOrchestrator) applyResult(ctx context.Context, doc *entity.Document, result *entity.TransportResult, expected string) error {
	return persistResult(ctx, o.documentRepo, o.events, doc, result, expected, o.now())
}

// markFailed deja constancia de un envío asíncrono abortado antes de la red
// (draft → pending → exception en una sola escritura).
func (o *SubmissionOrchestrator) markFailed(ctx context.Context, doc *entity.Document, cause error) {
	stored := doc.Status
	if stored != entity.DocumentStatusPending {
		next, err := domsunat.Transition(stored, domsunat.TriggerSubmit)
		if err != nil {
			return
		}
		doc.Status = next
	}
	result := &entity.TransportResult{Status: entity.DocumentStatusException, ResponseMessage: cause.Error()}
	if err := o.applyResult(ctx, doc, result, stored); err != nil {
		o.log.Error().Err(err).Str("document_id", doc.ID).Msg("no se pudo persistir exception")
	}
}

func statusDTO(doc *entity.Document) *dto.DocumentStatusDTO {
	return &dto.DocumentStatusDTO{
		ID:              doc.ID,
		Status:          doc.Status,
		ResponseCode:    doc.ResponseCode,
		ResponseMessage: doc.ResponseMessage,
		Notes:           doc.Notes,
		Ticket:          doc.Ticket,
		VoidTicket:      doc.VoidTicket,
	}
}
