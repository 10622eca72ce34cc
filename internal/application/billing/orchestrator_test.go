package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/application/billing"
	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/transport"
)

func newOrchestrator(s *memStore, resolver billing.AdapterResolver, pub events.Publisher) *billing.SubmissionOrchestrator {
	return billing.NewSubmissionOrchestrator(
		memDocumentRepo{s}, memCompanyRepo{s}, memCustomerRepo{s}, resolver, pub,
		billing.OrchestratorConfig{Workers: 2, QueueSize: 4, JobTimeout: 5 * time.Second},
		zerolog.Nop(),
	)
}

func mockResolver(cfg transport.MockConfig) staticResolver {
	return staticResolver{adapter: transport.NewMockAdapter(cfg, zerolog.Nop())}
}

func TestSubmit_AceptadoGuardaHashXMLyCDR(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	pub := &recordingPublisher{}
	o := newOrchestrator(s, mockResolver(transport.MockConfig{}), pub)

	out, err := o.Submit(context.Background(), companyID, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAccepted, out.Status)
	assert.Equal(t, "0", out.ResponseCode)

	stored := s.doc("doc-1")
	assert.Equal(t, entity.DocumentStatusAccepted, stored.Status)
	assert.NotEmpty(t, stored.Hash)
	assert.Contains(t, stored.SignedXML, "F001-")
	assert.NotEmpty(t, stored.CDR)
	assert.Equal(t, []string{events.TypeStatusChanged}, pub.types())
}

func TestSubmit_RechazoSimulado2010(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	o := newOrchestrator(s, mockResolver(transport.MockConfig{ForceErrorCode: "2010"}), nil)

	out, err := o.Submit(context.Background(), companyID, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusRejected, out.Status)
	assert.Equal(t, "2010", out.ResponseCode)
	assert.NotEmpty(t, out.ResponseMessage)
}

func TestSubmit_CertificadoInvalidoDevuelveErrorYNoTocaElEstado(t *testing.T) {
	for _, status := range []string{entity.DocumentStatusDraft, entity.DocumentStatusException} {
		t.Run(status, func(t *testing.T) {
			s := newMemStore()
			seedDocument(s, "doc-1", status, time.Now())
			adapter := &stubAdapter{send: func(*entity.Document) (*entity.TransportResult, error) {
				return nil, &domain.CertificateError{Reason: "contraseña incorrecta"}
			}}
			pub := &recordingPublisher{}
			o := newOrchestrator(s, staticResolver{adapter: adapter}, pub)

			out, err := o.Submit(context.Background(), companyID, "doc-1")
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, domain.ErrCertificate)
			assert.Equal(t, status, s.doc("doc-1").Status)
			assert.Empty(t, pub.types())
		})
	}
}

func TestProcessAsync_CertificadoInvalidoMarcaException(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	adapter := &stubAdapter{send: func(*entity.Document) (*entity.TransportResult, error) {
		return nil, &domain.CertificateError{Reason: "contraseña incorrecta"}
	}}
	o := newOrchestrator(s, staticResolver{adapter: adapter}, nil)
	o.Start()

	require.NoError(t, o.ProcessAsync("doc-1"))
	o.Stop()

	stored := s.doc("doc-1")
	assert.Equal(t, entity.DocumentStatusException, stored.Status)
	assert.Contains(t, stored.ResponseMessage, "contraseña incorrecta")
}

func TestSubmit_EnvioConcurrenteSoloUnoGana(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())

	var o *billing.SubmissionOrchestrator
	var inner error
	sends := 0
	adapter := &stubAdapter{send: func(*entity.Document) (*entity.TransportResult, error) {
		sends++
		if sends == 1 {
			// segundo envío mientras el primero está en vuelo
			_, inner = o.Submit(context.Background(), companyID, "doc-1")
		}
		return &entity.TransportResult{Status: entity.DocumentStatusAccepted, ResponseCode: "0"}, nil
	}}
	o = newOrchestrator(s, staticResolver{adapter: adapter}, nil)

	out, err := o.Submit(context.Background(), companyID, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAccepted, out.Status)
	assert.ErrorIs(t, inner, domain.ErrConflict)
	assert.Equal(t, 1, sends)
	assert.Equal(t, entity.DocumentStatusAccepted, s.doc("doc-1").Status)
}

// staleReadRepo devuelve siempre la copia leída antes de que otro envío avanzara el comprobante.
type staleReadRepo struct {
	memDocumentRepo
	snapshot *entity.Document
}

func (r staleReadRepo) GetByID(context.Context, string) (*entity.Document, error) {
	cp := *r.snapshot
	return &cp, nil
}

func TestSubmit_LecturaObsoletaNoPisaUnAceptado(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	snapshot := s.doc("doc-1")

	first := newOrchestrator(s, mockResolver(transport.MockConfig{}), nil)
	_, err := first.Submit(context.Background(), companyID, "doc-1")
	require.NoError(t, err)
	require.Equal(t, entity.DocumentStatusAccepted, s.doc("doc-1").Status)

	sends := 0
	adapter := &stubAdapter{send: func(*entity.Document) (*entity.TransportResult, error) {
		sends++
		return &entity.TransportResult{Status: entity.DocumentStatusException, ResponseCode: "1033"}, nil
	}}
	second := billing.NewSubmissionOrchestrator(
		staleReadRepo{memDocumentRepo{s}, snapshot}, memCompanyRepo{s}, memCustomerRepo{s},
		staticResolver{adapter: adapter}, nil,
		billing.OrchestratorConfig{Workers: 1, QueueSize: 1, JobTimeout: time.Second}, zerolog.Nop(),
	)

	_, err = second.Submit(context.Background(), companyID, "doc-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Zero(t, sends)
	assert.Equal(t, entity.DocumentStatusAccepted, s.doc("doc-1").Status)
}

func TestSubmit_ReintentoDesdeException(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusException, time.Now())
	o := newOrchestrator(s, mockResolver(transport.MockConfig{}), nil)

	out, err := o.Submit(context.Background(), companyID, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAccepted, out.Status)
}

func TestSubmit_TicketPendienteQuedaEnPending(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	adapter := &stubAdapter{send: func(*entity.Document) (*entity.TransportResult, error) {
		return &entity.TransportResult{Status: entity.DocumentStatusPending, Ticket: "T-1"}, nil
	}}
	o := newOrchestrator(s, staticResolver{adapter: adapter}, nil)

	out, err := o.Submit(context.Background(), companyID, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, out.Status)
	assert.Equal(t, "T-1", s.doc("doc-1").Ticket)
}

func TestSubmit_EstadosNoReenviables(t *testing.T) {
	for _, status := range []string{entity.DocumentStatusAccepted, entity.DocumentStatusRejected, entity.DocumentStatusVoided} {
		t.Run(status, func(t *testing.T) {
			s := newMemStore()
			seedDocument(s, "doc-1", status, time.Now())
			o := newOrchestrator(s, mockResolver(transport.MockConfig{}), nil)

			_, err := o.Submit(context.Background(), companyID, "doc-1")
			assert.ErrorIs(t, err, domain.ErrConflict)
			assert.Equal(t, status, s.doc("doc-1").Status)
		})
	}
}

func TestSubmit_OtraEmpresaYNoEncontrado(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	o := newOrchestrator(s, mockResolver(transport.MockConfig{}), nil)

	_, err := o.Submit(context.Background(), "company-2", "doc-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = o.Submit(context.Background(), companyID, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmit_ConfiguracionInvalidaNoTocaElEstado(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	resolver := staticResolver{err: &domain.ConfigurationError{Field: "ose_token", Message: "requerido"}}
	o := newOrchestrator(s, resolver, nil)

	_, err := o.Submit(context.Background(), companyID, "doc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Equal(t, entity.DocumentStatusDraft, s.doc("doc-1").Status)
}

func TestProcessAsync_ProcesaEnSegundoPlano(t *testing.T) {
	s := newMemStore()
	seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	seedDocument(s, "doc-2", entity.DocumentStatusDraft, time.Now())
	o := newOrchestrator(s, mockResolver(transport.MockConfig{}), nil)
	o.Start()

	require.NoError(t, o.ProcessAsync("doc-1"))
	require.NoError(t, o.ProcessAsync("doc-2"))
	o.Stop()

	assert.Equal(t, entity.DocumentStatusAccepted, s.doc("doc-1").Status)
	assert.Equal(t, entity.DocumentStatusAccepted, s.doc("doc-2").Status)
	assert.ErrorIs(t, o.ProcessAsync("doc-1"), billing.ErrPoolStopped)
}

func TestProcessAsync_ValidacionFallidaMarcaException(t *testing.T) {
	s := newMemStore()
	doc := seedDocument(s, "doc-1", entity.DocumentStatusDraft, time.Now())
	doc.Series = "B001"
	s.put(doc)
	o := newOrchestrator(s, mockResolver(transport.MockConfig{}), nil)
	o.Start()

	require.NoError(t, o.ProcessAsync("doc-1"))
	o.Stop()

	stored := s.doc("doc-1")
	assert.Equal(t, entity.DocumentStatusException, stored.Status)
	assert.Contains(t, stored.ResponseMessage, "serie")
}
