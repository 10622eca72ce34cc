package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// CustomerUseCase casos de uso para clientes (adquirentes).
type CustomerUseCase struct {
	repo repository.CustomerRepository
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(repo repository.CustomerRepository) *CustomerUseCase {
	return &CustomerUseCase{repo: repo}
}

// Create registra un cliente validando su documento de identidad (Catálogo 06).
func (uc *CustomerUseCase) Create(ctx context.Context, companyID string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	in.IdentityNumber = strings.TrimSpace(in.IdentityNumber)
	if strings.TrimSpace(in.Name) == "" || in.IdentityType == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.IdentityType == pkgsunat.IdentityVarious && in.IdentityNumber == "" {
		in.IdentityNumber = "-"
	}
	if err := pkgsunat.ValidateIdentity(in.IdentityType, in.IdentityNumber); err != nil {
		return nil, domain.NewValidationError(err)
	}

	existing, err := uc.repo.GetByCompanyAndIdentity(ctx, companyID, in.IdentityType, in.IdentityNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil && in.IdentityType != pkgsunat.IdentityVarious {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	customer := &entity.Customer{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		IdentityType:   in.IdentityType,
		IdentityNumber: in.IdentityNumber,
		Name:           strings.TrimSpace(in.Name),
		Address:        in.Address,
		Email:          in.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

// Get devuelve un cliente de la empresa.
func (uc *CustomerUseCase) Get(ctx context.Context, companyID, id string) (*dto.CustomerResponse, error) {
	c, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return toCustomerResponse(c), nil
}

// List lista clientes de la empresa.
func (uc *CustomerUseCase) List(ctx context.Context, companyID string, limit, offset int) ([]*dto.CustomerResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := uc.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:             c.ID,
		CompanyID:      c.CompanyID,
		IdentityType:   c.IdentityType,
		IdentityNumber: c.IdentityNumber,
		Name:           c.Name,
		Address:        c.Address,
		Email:          c.Email,
	}
}
