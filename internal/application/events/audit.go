package events

import (
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// Audit registra en el log cada evento de todas las empresas hasta que el broker se cierre.
// El canal devuelto se cierra cuando se vacía la suscripción.
func Audit(b *Broker, log zerolog.Logger) <-chan struct{} {
	ch, _ := b.Subscribe("")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			e := log.Info()
			if ev.Status == entity.DocumentStatusRejected || ev.Status == entity.DocumentStatusException {
				e = log.Warn()
			}
			e.Str("type", ev.Type).
				Str("company_id", ev.CompanyID).
				Str("document_id", ev.DocumentID).
				Str("number", ev.Number).
				Str("status", ev.Status).
				Str("code", ev.ResponseCode).
				Msg(ev.Message)
		}
	}()
	return done
}
