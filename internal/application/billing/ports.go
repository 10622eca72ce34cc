package billing

import (
	"context"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/transport"
)

// DocumentTxRunner ejecuta una función dentro de una transacción que incluye
// el asignador de correlativos y el repositorio de comprobantes.
// Si fn retorna error se hace rollback y el correlativo no se consume.
type DocumentTxRunner interface {
	RunDocument(ctx context.Context, fn func(
		allocator repository.CorrelativeAllocator,
		documentRepo repository.DocumentRepository,
	) error) error
}

// AdapterResolver devuelve el backend de envío configurado para la empresa.
type AdapterResolver interface {
	AdapterFor(ctx context.Context, company *entity.Company) (transport.Adapter, error)
}

// Submitter encola comprobantes para envío en segundo plano.
type Submitter interface {
	ProcessAsync(documentID string) error
}
