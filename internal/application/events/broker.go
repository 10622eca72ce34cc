// Package events publica los cambios de estado de los comprobantes a los suscriptores
// en proceso (por empresa). El broker se crea al iniciar el servicio y se cierra al apagarlo.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tipos de evento del ciclo de vida del comprobante.
const (
	TypeDocumentCreated = "document.created"
	TypeStatusChanged   = "document.status_changed"
	TypeVoidRequested   = "document.void_requested"
)

// Event es la notificación emitida tras persistir un cambio.
type Event struct {
	Type         string    `json:"type"`
	CompanyID    string    `json:"company_id"`
	DocumentID   string    `json:"document_id"`
	Number       string    `json:"number"`
	Status       string    `json:"status"`
	ResponseCode string    `json:"response_code,omitempty"`
	Message      string    `json:"message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher es lo que necesitan los casos de uso para emitir eventos.
type Publisher interface {
	Publish(ev Event)
}

const defaultBuffer = 16

type subscriber struct {
	companyID string
	ch        chan Event
}

// Broker reparte eventos a los suscriptores de cada empresa.
// Un suscriptor lento pierde eventos en lugar de bloquear al publicador.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	closed bool
	log    zerolog.Logger
}

// NewBroker construye el registro. buffer <= 0 usa el tamaño por defecto.
func NewBroker(buffer int, log zerolog.Logger) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		log:    log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registra un suscriptor para la empresa. companyID vacío recibe todos los eventos.
// La función devuelta cancela la suscripción y cierra el canal.
func (b *Broker) Subscribe(companyID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{companyID: companyID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Publish entrega el evento sin bloquear.
func (b *Broker) Publish(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.companyID != "" && sub.companyID != ev.CompanyID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.log.Warn().Str("company_id", ev.CompanyID).Str("document_id", ev.DocumentID).
				Str("type", ev.Type).Msg("suscriptor lento, evento descartado")
		}
	}
}

// Subscribers devuelve la cantidad de suscripciones activas.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cierra todos los canales. Publicar después de Close no tiene efecto.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
