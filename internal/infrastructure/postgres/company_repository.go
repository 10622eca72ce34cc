package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `id, ruc, legal_name, trade_name, address, ubigeo, email, status,
	provider, sol_user, sol_password, cert_path, cert_password, ose_url, ose_token, created_at, updated_at`

// Create persiste una nueva empresa emisora.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	query := `INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.RUC, c.LegalName, c.TradeName, c.Address, c.Ubigeo, c.Email, c.Status,
		c.Provider, c.SOLUser, c.SOLPassword, c.CertPath, c.CertPassword, c.OSEURL, c.OSEToken,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ruc %s: %w", c.RUC, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID; nil si no existe.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// GetByRUC obtiene una empresa por RUC; nil si no existe.
func (r *CompanyRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE ruc = $1`, ruc)
}

func (r *CompanyRepo) getOne(ctx context.Context, query string, arg string) (*entity.Company, error) {
	var c entity.Company
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.RUC, &c.LegalName, &c.TradeName, &c.Address, &c.Ubigeo, &c.Email, &c.Status,
		&c.Provider, &c.SOLUser, &c.SOLPassword, &c.CertPath, &c.CertPassword, &c.OSEURL, &c.OSEToken,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// Update actualiza datos y credenciales de envío.
func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	query := `
		UPDATE companies
		SET legal_name = $2, trade_name = $3, address = $4, ubigeo = $5, email = $6, status = $7,
		    provider = $8, sol_user = $9, sol_password = $10, cert_path = $11, cert_password = $12,
		    ose_url = $13, ose_token = $14, updated_at = $15
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.LegalName, c.TradeName, c.Address, c.Ubigeo, c.Email, c.Status,
		c.Provider, c.SOLUser, c.SOLPassword, c.CertPath, c.CertPassword, c.OSEURL, c.OSEToken,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
