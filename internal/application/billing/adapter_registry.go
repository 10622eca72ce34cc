package billing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/transport"
)

// AdapterFactory construye un backend a partir de su configuración.
type AdapterFactory func(cfg transport.Config, log zerolog.Logger) (transport.Adapter, error)

type cachedAdapter struct {
	adapter   transport.Adapter
	updatedAt time.Time
}

// AdapterRegistry resuelve y cachea el backend de envío por empresa.
// La entrada se reconstruye cuando cambia UpdatedAt de la empresa (nuevas credenciales).
type AdapterRegistry struct {
	defaults transport.Defaults
	factory  AdapterFactory
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[string]cachedAdapter
}

// NewAdapterRegistry usa transport.NewAdapter si factory es nil.
func NewAdapterRegistry(defaults transport.Defaults, factory AdapterFactory, log zerolog.Logger) *AdapterRegistry {
	if factory == nil {
		factory = transport.NewAdapter
	}
	return &AdapterRegistry{
		defaults: defaults,
		factory:  factory,
		log:      log,
		cache:    make(map[string]cachedAdapter),
	}
}

// AdapterFor implementa AdapterResolver.
func (r *AdapterRegistry) AdapterFor(_ context.Context, company *entity.Company) (transport.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache[company.ID]; ok && c.updatedAt.Equal(company.UpdatedAt) {
		return c.adapter, nil
	}
	adapter, err := r.factory(transport.ConfigFromCompany(company, r.defaults),
		r.log.With().Str("company_id", company.ID).Logger())
	if err != nil {
		return nil, err
	}
	r.cache[company.ID] = cachedAdapter{adapter: adapter, updatedAt: company.UpdatedAt}
	r.log.Debug().Str("company_id", company.ID).Str("provider", adapter.Name()).Msg("adaptador registrado")
	return adapter, nil
}

// Invalidate descarta el adaptador cacheado de una empresa.
func (r *AdapterRegistry) Invalidate(companyID string) {
	r.mu.Lock()
	delete(r.cache, companyID)
	r.mu.Unlock()
}
