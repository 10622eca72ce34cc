package billing

import (
	"context"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	infrasunat "github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
)

// DocumentQueryUseCase consultas de comprobantes por empresa.
type DocumentQueryUseCase struct {
	documentRepo repository.DocumentRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
}

// NewDocumentQueryUseCase construye el caso de uso.
func NewDocumentQueryUseCase(
	documentRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
) *DocumentQueryUseCase {
	return &DocumentQueryUseCase{documentRepo: documentRepo, companyRepo: companyRepo, customerRepo: customerRepo}
}

func (uc *DocumentQueryUseCase) load(ctx context.Context, companyID, documentID string) (*entity.Document, error) {
	doc, err := uc.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return doc, nil
}

// GetDocument devuelve el comprobante con totales, estado y datos del QR.
func (uc *DocumentQueryUseCase) GetDocument(ctx context.Context, companyID, documentID string) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, companyID, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := resolveParties(ctx, uc.companyRepo, uc.customerRepo, doc); err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

// List lista comprobantes de la empresa (sin QR).
func (uc *DocumentQueryUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) ([]*dto.DocumentResponse, error) {
	page.Normalize()
	docs, err := uc.documentRepo.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentResponse(d))
	}
	return out, nil
}

// SignedXML devuelve el XML firmado y su nombre de archivo SUNAT.
// Un comprobante que aún no se firmó responde ErrNotFound.
func (uc *DocumentQueryUseCase) SignedXML(ctx context.Context, companyID, documentID string) ([]byte, string, error) {
	doc, err := uc.load(ctx, companyID, documentID)
	if err != nil {
		return nil, "", err
	}
	if doc.SignedXML == "" {
		return nil, "", domain.ErrNotFound
	}
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, "", err
	}
	if company == nil {
		return nil, "", domain.ErrNotFound
	}
	return []byte(doc.SignedXML), infrasunat.DocumentBaseName(company.RUC, doc) + ".xml", nil
}

// CDR devuelve la constancia de recepción (ZIP) tal como la devolvió SUNAT.
func (uc *DocumentQueryUseCase) CDR(ctx context.Context, companyID, documentID string) ([]byte, error) {
	doc, err := uc.load(ctx, companyID, documentID)
	if err != nil {
		return nil, err
	}
	if len(doc.CDR) == 0 {
		return nil, domain.ErrNotFound
	}
	return doc.CDR, nil
}
