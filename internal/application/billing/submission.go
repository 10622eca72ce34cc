package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

// resolveParties completa la vista de envío con las copias de emisor y cliente.
func resolveParties(ctx context.Context, companyRepo repository.CompanyRepository, customerRepo repository.CustomerRepository, doc *entity.Document) (*entity.Company, error) {
	company, err := companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("empresa %s: %w", doc.CompanyID, err)
	}
	if company == nil {
		return nil, fmt.Errorf("empresa %s: %w", doc.CompanyID, domain.ErrNotFound)
	}
	customer, err := customerRepo.GetByID(ctx, doc.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cliente %s: %w", doc.CustomerID, err)
	}
	if customer == nil {
		return nil, fmt.Errorf("cliente %s: %w", doc.CustomerID, domain.ErrNotFound)
	}
	doc.Issuer = company
	doc.Customer = customer
	return company, nil
}

// persistResult aplica el resultado de un adaptador sobre el comprobante y lo guarda
// solo si la fila sigue en expected.
func persistResult(ctx context.Context, repo repository.DocumentRepository, publisher events.Publisher, doc *entity.Document, result *entity.TransportResult, expected string, now time.Time) error {
	next, err := domsunat.Classify(doc.Status, result)
	if err != nil {
		return err
	}
	doc.Status = next
	doc.ResponseCode = result.ResponseCode
	doc.ResponseMessage = result.ResponseMessage
	doc.Notes = result.Notes
	if result.Hash != "" {
		doc.Hash = result.Hash
	}
	if result.Ticket != "" {
		doc.Ticket = result.Ticket
	}
	if len(result.SignedXML) > 0 {
		doc.SignedXML = string(result.SignedXML)
	}
	if len(result.CDR) > 0 {
		doc.CDR = result.CDR
	}
	doc.UpdatedAt = now

	if err := repo.UpdateSubmission(ctx, doc, expected); err != nil {
		return fmt.Errorf("persistir %s: %w", doc.Status, err)
	}
	publish(publisher, doc, events.TypeStatusChanged)
	return nil
}

func publish(publisher events.Publisher, doc *entity.Document, eventType string) {
	if publisher != nil {
		publisher.Publish(eventFor(doc, eventType))
	}
}
