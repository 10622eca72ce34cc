package sunat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

func TestStatusForResponseCode_Rangos(t *testing.T) {
	casos := map[string]string{
		"0":    entity.DocumentStatusAccepted,
		"100":  entity.DocumentStatusException,
		"1033": entity.DocumentStatusException,
		"1999": entity.DocumentStatusException,
		"2000": entity.DocumentStatusRejected,
		"2010": entity.DocumentStatusRejected,
		"3999": entity.DocumentStatusRejected,
		"4000": entity.DocumentStatusObserved,
		"4287": entity.DocumentStatusObserved,
		"abc":  entity.DocumentStatusException,
		"0111": entity.DocumentStatusException,
	}
	for code, want := range casos {
		assert.Equal(t, want, sunat.StatusForResponseCode(code), "código %s", code)
	}
}

func TestClassify_DesdePending(t *testing.T) {
	casos := map[string]string{
		entity.DocumentStatusAccepted:  entity.DocumentStatusAccepted,
		entity.DocumentStatusRejected:  entity.DocumentStatusRejected,
		entity.DocumentStatusObserved:  entity.DocumentStatusObserved,
		entity.DocumentStatusException: entity.DocumentStatusException,
		entity.DocumentStatusPending:   entity.DocumentStatusPending,
	}
	for status, want := range casos {
		next, err := sunat.Classify(entity.DocumentStatusPending, &entity.TransportResult{Status: status})
		require.NoError(t, err)
		assert.Equal(t, want, next)
	}
}

func TestClassify_TicketSinEstadoFinalSigueEnPending(t *testing.T) {
	next, err := sunat.Classify(entity.DocumentStatusPending, &entity.TransportResult{
		Success: true, Status: entity.DocumentStatusPending, Ticket: "1700000000001",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, next)
}

func TestClassify_TicketSinEstadoNoEsExcepcion(t *testing.T) {
	next, err := sunat.Classify(entity.DocumentStatusPending, &entity.TransportResult{Ticket: "1700000000002"})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, next)

	next, err = sunat.Classify(entity.DocumentStatusPending, &entity.TransportResult{})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusException, next, "sin ticket ni estado es una excepción")
}

func TestTransition_Prohibidas(t *testing.T) {
	_, err := sunat.Transition(entity.DocumentStatusDraft, sunat.TriggerAccept)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = sunat.Transition(entity.DocumentStatusRejected, sunat.TriggerVoid)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = sunat.Transition(entity.DocumentStatusAccepted, sunat.TriggerSubmit)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "un aceptado es inmutable")

	next, err := sunat.Transition(entity.DocumentStatusException, sunat.TriggerSubmit)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, next, "reintento desde exception")
}

func TestCanVoid_Plazo(t *testing.T) {
	issue := time.Date(2026, 10, 1, 15, 30, 0, 0, time.UTC)
	doc := &entity.Document{Status: entity.DocumentStatusAccepted, IssueDate: issue}

	assert.NoError(t, sunat.CanVoid(doc, issue.Add(6*24*time.Hour)))
	assert.ErrorIs(t, sunat.CanVoid(doc, issue.Add(8*24*time.Hour)), domain.ErrVoidWindowExpired)

	doc.Status = entity.DocumentStatusObserved
	assert.ErrorIs(t, sunat.CanVoid(doc, issue), domain.ErrInvalidTransition)

	doc.Status = entity.DocumentStatusAccepted
	doc.VoidTicket = "123"
	assert.ErrorIs(t, sunat.CanVoid(doc, issue), domain.ErrConflict)
}
