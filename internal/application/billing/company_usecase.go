package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// Estados de la empresa emisora.
const (
	CompanyActive    = "active"
	CompanySuspended = "suspended"
)

// CompanyUseCase registra empresas emisoras y sus credenciales de envío.
type CompanyUseCase struct {
	repo     repository.CompanyRepository
	adapters AdapterResolver
	now      func() time.Time
	log      zerolog.Logger
}

// NewCompanyUseCase construye el caso de uso. adapters valida las credenciales antes de guardarlas.
func NewCompanyUseCase(repo repository.CompanyRepository, adapters AdapterResolver, log zerolog.Logger) *CompanyUseCase {
	return &CompanyUseCase{
		repo:     repo,
		adapters: adapters,
		now:      time.Now,
		log:      log.With().Str("component", "company").Logger(),
	}
}

// Create registra la empresa. El RUC debe ser válido y no estar registrado.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	in.RUC = strings.TrimSpace(in.RUC)
	in.LegalName = strings.TrimSpace(in.LegalName)
	if in.RUC == "" || in.LegalName == "" {
		return nil, fmt.Errorf("%w: ruc y legal_name son requeridos", domain.ErrInvalidInput)
	}
	if err := pkgsunat.ValidateRUC(in.RUC); err != nil {
		return nil, domain.NewValidationError(err)
	}
	if in.Ubigeo != "" && !isDigits(in.Ubigeo, 6) {
		return nil, &domain.ValidationError{Problems: []string{"ubigeo debe tener 6 dígitos"}}
	}
	existing, err := uc.repo.GetByRUC(ctx, in.RUC)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: RUC %s ya registrado", domain.ErrDuplicate, in.RUC)
	}

	now := uc.now()
	company := &entity.Company{
		ID:        uuid.New().String(),
		RUC:       in.RUC,
		LegalName: in.LegalName,
		TradeName: strings.TrimSpace(in.TradeName),
		Address:   strings.TrimSpace(in.Address),
		Ubigeo:    in.Ubigeo,
		Email:     strings.TrimSpace(in.Email),
		Status:    CompanyActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", company.ID).Str("ruc", company.RUC).Msg("empresa registrada")
	return toCompanyResponse(company), nil
}

// Get devuelve la empresa del token.
func (uc *CompanyUseCase) Get(ctx context.Context, companyID string) (*dto.CompanyResponse, error) {
	company, err := uc.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toCompanyResponse(company), nil
}

// IsActive indica si la empresa puede emitir.
func (uc *CompanyUseCase) IsActive(ctx context.Context, companyID string) (bool, error) {
	company, err := uc.repo.GetByID(ctx, companyID)
	if err != nil {
		return false, err
	}
	return company != nil && company.Status == CompanyActive, nil
}

// UpdateSettings cambia proveedor y credenciales. La configuración resultante se valida
// construyendo el adaptador; si falla no se persiste nada.
func (uc *CompanyUseCase) UpdateSettings(ctx context.Context, companyID string, in dto.UpdateCompanySettingsRequest) (*dto.CompanyResponse, error) {
	company, err := uc.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	updated := *company
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&updated.Provider, in.Provider)
	apply(&updated.SOLUser, in.SOLUser)
	apply(&updated.SOLPassword, in.SOLPassword)
	apply(&updated.CertPath, in.CertPath)
	apply(&updated.CertPassword, in.CertPassword)
	apply(&updated.OSEURL, in.OSEURL)
	apply(&updated.OSEToken, in.OSEToken)
	updated.Provider = strings.ToLower(updated.Provider)
	updated.UpdatedAt = uc.now()

	if _, err := uc.adapters.AdapterFor(ctx, &updated); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", companyID).Str("provider", updated.Provider).Msg("credenciales de envío actualizadas")
	return toCompanyResponse(&updated), nil
}

func (uc *CompanyUseCase) load(ctx context.Context, companyID string) (*entity.Company, error) {
	company, err := uc.repo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return company, nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:             c.ID,
		RUC:            c.RUC,
		LegalName:      c.LegalName,
		TradeName:      c.TradeName,
		Address:        c.Address,
		Ubigeo:         c.Ubigeo,
		Email:          c.Email,
		Status:         c.Status,
		Provider:       c.Provider,
		HasCredentials: c.SOLUser != "" || c.OSEToken != "",
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
