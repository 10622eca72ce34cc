package events_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/application/events"
)

func TestBroker_FiltraPorEmpresa(t *testing.T) {
	b := events.NewBroker(4, zerolog.Nop())
	defer b.Close()

	a, cancelA := b.Subscribe("empresa-a")
	defer cancelA()
	all, cancelAll := b.Subscribe("")
	defer cancelAll()

	b.Publish(events.Event{Type: events.TypeStatusChanged, CompanyID: "empresa-b", DocumentID: "d1"})
	b.Publish(events.Event{Type: events.TypeStatusChanged, CompanyID: "empresa-a", DocumentID: "d2"})

	ev := <-a
	assert.Equal(t, "d2", ev.DocumentID)
	assert.False(t, ev.OccurredAt.IsZero())
	assert.Len(t, a, 0)

	assert.Equal(t, "d1", (<-all).DocumentID)
	assert.Equal(t, "d2", (<-all).DocumentID)
}

func TestBroker_SuscriptorLentoNoBloquea(t *testing.T) {
	b := events.NewBroker(1, zerolog.Nop())
	defer b.Close()

	ch, cancel := b.Subscribe("c")
	defer cancel()

	for i := 0; i < 5; i++ {
		b.Publish(events.Event{CompanyID: "c"})
	}
	assert.Len(t, ch, 1)
}

func TestBroker_CancelarYCerrar(t *testing.T) {
	b := events.NewBroker(0, zerolog.Nop())

	ch, cancel := b.Subscribe("c")
	require.Equal(t, 1, b.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, open := <-ch
	assert.False(t, open)

	other, _ := b.Subscribe("c")
	b.Close()
	_, open = <-other
	assert.False(t, open)

	b.Publish(events.Event{CompanyID: "c"})
	late, _ := b.Subscribe("c")
	_, open = <-late
	assert.False(t, open, "después de Close las suscripciones nacen cerradas")
}
