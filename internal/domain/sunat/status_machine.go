package sunat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// Disparadores de la máquina de estados del comprobante.
const (
	TriggerSubmit  = "submit"
	TriggerAccept  = "accept"
	TriggerReject  = "reject"
	TriggerObserve = "observe"
	TriggerFail    = "fail"
	TriggerWait    = "wait"
	TriggerVoid    = "void"
)

// VoidWindow es el plazo para comunicar la baja desde la fecha de emisión.
const VoidWindow = 7 * 24 * time.Hour

func newStatusMachine(initial string) *stateless.StateMachine {
	machine := stateless.NewStateMachine(initial)

	machine.Configure(entity.DocumentStatusDraft).
		Permit(TriggerSubmit, entity.DocumentStatusPending)

	machine.Configure(entity.DocumentStatusPending).
		Permit(TriggerAccept, entity.DocumentStatusAccepted).
		Permit(TriggerReject, entity.DocumentStatusRejected).
		Permit(TriggerObserve, entity.DocumentStatusObserved).
		Permit(TriggerFail, entity.DocumentStatusException).
		PermitReentry(TriggerWait)

	machine.Configure(entity.DocumentStatusException).
		Permit(TriggerSubmit, entity.DocumentStatusPending)

	machine.Configure(entity.DocumentStatusAccepted).
		Permit(TriggerVoid, entity.DocumentStatusVoided)

	machine.Configure(entity.DocumentStatusRejected)
	machine.Configure(entity.DocumentStatusObserved)
	machine.Configure(entity.DocumentStatusVoided)

	return machine
}

// Transition aplica un disparador al estado actual y devuelve el estado resultante.
func Transition(current, trigger string) (string, error) {
	machine := newStatusMachine(current)
	if err := machine.Fire(trigger); err != nil {
		return current, fmt.Errorf("%w: %s -(%s)-> ?: %v", domain.ErrInvalidTransition, current, trigger, err)
	}
	next, ok := machine.MustState().(string)
	if !ok {
		return current, fmt.Errorf("%w: estado inesperado", domain.ErrInvalidTransition)
	}
	return next, nil
}

// CanTransition indica si el disparador está permitido desde el estado actual.
func CanTransition(current, trigger string) bool {
	ok, err := newStatusMachine(current).CanFire(trigger)
	return err == nil && ok
}

// Classify traduce el resultado de un adaptador en el siguiente estado del comprobante.
// Un resultado pendiente (con o sin ticket) mantiene el comprobante en pending.
func Classify(current string, result *entity.TransportResult) (string, error) {
	if result == nil {
		return Transition(current, TriggerFail)
	}
	return Transition(current, triggerFor(result))
}

func triggerFor(result *entity.TransportResult) string {
	if result.Status == "" && result.Ticket != "" {
		return TriggerWait
	}
	switch result.Status {
	case entity.DocumentStatusAccepted:
		return TriggerAccept
	case entity.DocumentStatusRejected:
		return TriggerReject
	case entity.DocumentStatusObserved:
		return TriggerObserve
	case entity.DocumentStatusPending:
		return TriggerWait
	default:
		return TriggerFail
	}
}

// StatusForResponseCode aplica los rangos de SUNAT:
// 0 aceptado, 100-1999 excepción, 2000-3999 rechazo, 4000+ observado.
func StatusForResponseCode(code string) string {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return entity.DocumentStatusException
	}
	switch {
	case n == pkgsunat.ResponseCodeAccepted:
		return entity.DocumentStatusAccepted
	case n >= pkgsunat.ResponseObservationMin:
		return entity.DocumentStatusObserved
	case n >= pkgsunat.ResponseRejectedMin && n <= pkgsunat.ResponseRejectedMax:
		return entity.DocumentStatusRejected
	default:
		return entity.DocumentStatusException
	}
}

// CanVoid verifica que el comprobante esté aceptado y dentro del plazo de baja.
// Fuera del plazo debe emitirse una nota de crédito.
func CanVoid(doc *entity.Document, now time.Time) error {
	if !CanTransition(doc.Status, TriggerVoid) {
		return fmt.Errorf("%w: solo se da de baja un comprobante aceptado (estado %s)", domain.ErrInvalidTransition, doc.Status)
	}
	if doc.VoidTicket != "" {
		return fmt.Errorf("%w: la baja ya fue comunicada (ticket %s)", domain.ErrConflict, doc.VoidTicket)
	}
	issue := time.Date(doc.IssueDate.Year(), doc.IssueDate.Month(), doc.IssueDate.Day(), 0, 0, 0, 0, doc.IssueDate.Location())
	if now.Sub(issue) > VoidWindow {
		return fmt.Errorf("%w: emitido el %s", domain.ErrVoidWindowExpired, issue.Format("2006-01-02"))
	}
	return nil
}
