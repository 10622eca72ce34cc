package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
)

var _ repository.CorrelativeAllocator = (*SeriesAllocator)(nil)

// SeriesAllocator asigna correlativos con un upsert atómico sobre series_counters.
// Atado a una tx, el número solo se consume si la tx hace commit.
type SeriesAllocator struct {
	q Querier
}

// NewSeriesAllocator construye el asignador. Pasar la tx del comprobante.
func NewSeriesAllocator(q Querier) *SeriesAllocator {
	return &SeriesAllocator{q: q}
}

// Next devuelve el siguiente número de la serie (empieza en 1).
func (a *SeriesAllocator) Next(ctx context.Context, companyID, docType, series string) (int64, error) {
	const query = `
		INSERT INTO series_counters (company_id, document_type, series, last_number, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (company_id, document_type, series)
		DO UPDATE SET last_number = series_counters.last_number + 1, updated_at = now()
		RETURNING last_number`
	var n int64
	if err := a.q.QueryRow(ctx, query, companyID, docType, series).Scan(&n); err != nil {
		return 0, fmt.Errorf("asignar correlativo %s/%s: %w", docType, series, err)
	}
	return n, nil
}
