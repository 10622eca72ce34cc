package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia de comprobantes y sus líneas.
type DocumentRepository interface {
	// Create persiste cabecera y líneas en estado draft.
	Create(ctx context.Context, doc *entity.Document) error
	// UpdateSubmission actualiza estado, hash, ticket, respuesta, XML firmado y CDR
	// solo si el comprobante sigue en expectedStatus; si no, domain.ErrConflict.
	UpdateSubmission(ctx context.Context, doc *entity.Document, expectedStatus string) error
	// GetByID devuelve el comprobante con sus líneas; nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByNumber(ctx context.Context, companyID, docType, series string, number int64) (*entity.Document, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error)
	// ListAwaitingTicket devuelve los comprobantes con un ticket sin resolver
	// (envío pendiente o comunicación de baja en curso).
	ListAwaitingTicket(ctx context.Context, limit int) ([]*entity.Document, error)
	// ListStalePending devuelve envíos en pending sin ticket cuya última
	// actualización es anterior a before (el envío quedó sin resultado registrado).
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*entity.Document, error)
}

// CorrelativeAllocator asigna el siguiente correlativo de una serie de forma atómica.
// Debe ejecutarse dentro de la misma transacción que inserta el comprobante.
type CorrelativeAllocator interface {
	Next(ctx context.Context, companyID, docType, series string) (int64, error)
}
