package billing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

const (
	defaultPollBatch  = 50
	defaultStaleAfter = 15 * time.Minute
)

// staleMessage acompaña a los envíos recuperados: pueden reenviarse y SUNAT
// responderá con el CDR o con el código de comprobante ya informado.
const staleMessage = "envío sin resultado registrado; reenviar el comprobante"

// TicketPoller consulta periódicamente los tickets sin resolver: envíos en pending
// (resúmenes, OSE) y comunicaciones de baja en curso.
type TicketPoller struct {
	documentRepo repository.DocumentRepository
	companyRepo  repository.CompanyRepository
	adapters     AdapterResolver
	events       events.Publisher
	interval     time.Duration
	staleAfter   time.Duration
	batchSize    int
	now          func() time.Time
	log          zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicketPoller construye el poller. interval <= 0 usa 30 segundos.
func NewTicketPoller(
	documentRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	adapters AdapterResolver,
	publisher events.Publisher,
	interval time.Duration,
	log zerolog.Logger,
) *TicketPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TicketPoller{
		documentRepo: documentRepo,
		companyRepo:  companyRepo,
		adapters:     adapters,
		events:       publisher,
		interval:     interval,
		staleAfter:   defaultStaleAfter,
		batchSize:    defaultPollBatch,
		now:          time.Now,
		log:          log.With().Str("component", "ticket_poller").Logger(),
	}
}

// SetStaleAfter fija cuánto puede quedar un envío en pending sin ticket antes de
// pasarlo a exception. Debe superar el timeout de un trabajo de envío.
func (p *TicketPoller) SetStaleAfter(d time.Duration) {
	if d > 0 {
		p.staleAfter = d
	}
}

// Start lanza el ciclo de consulta en segundo plano.
func (p *TicketPoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop detiene el ciclo y espera a que termine la ronda en curso.
func (p *TicketPoller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *TicketPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				p.log.Error().Err(err).Msg("ronda de consulta fallida")
			}
		}
	}
}

// PollOnce ejecuta una ronda y devuelve cuántos comprobantes cambiaron.
func (p *TicketPoller) PollOnce(ctx context.Context) (int, error) {
	docs, err := p.documentRepo.ListAwaitingTicket(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		ok, err := p.poll(ctx, doc)
		if err != nil {
			p.log.Warn().Err(err).Str("document_id", doc.ID).Msg("consulta de ticket fallida")
			continue
		}
		if ok {
			changed++
		}
	}

	recovered, err := p.recoverStale(ctx)
	if err != nil {
		return changed, err
	}
	return changed + recovered, nil
}

// recoverStale pasa a exception los envíos que quedaron en pending sin ticket
// (el resultado no llegó a persistirse), para que puedan reenviarse.
func (p *TicketPoller) recoverStale(ctx context.Context) (int, error) {
	docs, err := p.documentRepo.ListStalePending(ctx, p.now().Add(-p.staleAfter), p.batchSize)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, doc := range docs {
		result := &entity.TransportResult{Status: entity.DocumentStatusException, ResponseMessage: staleMessage}
		if err := persistResult(ctx, p.documentRepo, p.events, doc, result, entity.DocumentStatusPending, p.now()); err != nil {
			p.log.Warn().Err(err).Str("document_id", doc.ID).Msg("no se pudo recuperar envío huérfano")
			continue
		}
		p.log.Warn().Str("document_id", doc.ID).Msg("envío en pending sin ticket pasado a exception")
		recovered++
	}
	return recovered, nil
}

func (p *TicketPoller) poll(ctx context.Context, doc *entity.Document) (bool, error) {
	company, err := p.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil || company == nil {
		return false, err
	}
	adapter, err := p.adapters.AdapterFor(ctx, company)
	if err != nil {
		return false, err
	}

	switch {
	case doc.Status == entity.DocumentStatusAccepted && doc.VoidTicket != "":
		return p.pollVoid(ctx, adapter.QueryStatus, doc)
	case doc.Status == entity.DocumentStatusPending && doc.Ticket != "":
		return p.pollSubmission(ctx, adapter.QueryStatus, doc)
	}
	return false, nil
}

type queryFunc func(ctx context.Context, ticket string) (*entity.TransportResult, error)

// pollSubmission resuelve un envío con ticket. Una excepción al consultar se
// considera transitoria y el comprobante sigue en pending.
func (p *TicketPoller) pollSubmission(ctx context.Context, query queryFunc, doc *entity.Document) (bool, error) {
	result, err := query(ctx, doc.Ticket)
	if err != nil {
		return false, err
	}
	if result.Status == entity.DocumentStatusPending || result.Status == entity.DocumentStatusException {
		p.log.Debug().Str("document_id", doc.ID).Str("ticket", doc.Ticket).
			Str("code", result.ResponseCode).Msg("ticket aún sin respuesta")
		return false, nil
	}
	if err := persistResult(ctx, p.documentRepo, p.events, doc, result, entity.DocumentStatusPending, p.now()); err != nil {
		return false, err
	}
	p.log.Info().Str("document_id", doc.ID).Str("status", doc.Status).Str("code", doc.ResponseCode).
		Msg("ticket resuelto")
	return true, nil
}

// pollVoid resuelve una comunicación de baja. Si SUNAT la rechaza el comprobante
// sigue aceptado y se limpia el ticket para permitir un nuevo intento.
func (p *TicketPoller) pollVoid(ctx context.Context, query queryFunc, doc *entity.Document) (bool, error) {
	result, err := query(ctx, doc.VoidTicket)
	if err != nil {
		return false, err
	}
	switch result.Status {
	case entity.DocumentStatusAccepted, entity.DocumentStatusObserved:
		voided, err := domsunat.Transition(doc.Status, domsunat.TriggerVoid)
		if err != nil {
			return false, err
		}
		doc.Status = voided
	case entity.DocumentStatusRejected:
		doc.VoidTicket = ""
		doc.VoidReason = ""
	default:
		return false, nil
	}
	doc.ResponseCode = result.ResponseCode
	doc.ResponseMessage = result.ResponseMessage
	doc.Notes = result.Notes
	doc.UpdatedAt = p.now()
	if err := p.documentRepo.UpdateSubmission(ctx, doc, entity.DocumentStatusAccepted); err != nil {
		return false, err
	}
	publish(p.events, doc, events.TypeStatusChanged)
	p.log.Info().Str("document_id", doc.ID).Str("status", doc.Status).Str("code", result.ResponseCode).
		Msg("baja resuelta")
	return true, nil
}
