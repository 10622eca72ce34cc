package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

const dateLayout = "2006-01-02"

// CreateDocumentUseCase registra un comprobante: calcula, valida, asigna correlativo,
// persiste en draft y lo encola para envío.
type CreateDocumentUseCase struct {
	txRunner     DocumentTxRunner
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	submitter    Submitter
	events       events.Publisher
	now          func() time.Time
	log          zerolog.Logger
}

// NewCreateDocumentUseCase construye el caso de uso. submitter puede ser nil (solo registro).
func NewCreateDocumentUseCase(
	txRunner DocumentTxRunner,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	submitter Submitter,
	publisher events.Publisher,
	log zerolog.Logger,
) *CreateDocumentUseCase {
	return &CreateDocumentUseCase{
		txRunner:     txRunner,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		submitter:    submitter,
		events:       publisher,
		now:          time.Now,
		log:          log,
	}
}

// Create arma el comprobante desde la petición. Un error de validación nunca consume correlativo.
func (uc *CreateDocumentUseCase) Create(ctx context.Context, companyID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if in.Type == "" || in.Series == "" || in.CustomerID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}

	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	customer, err := uc.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	if customer.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	doc, err := uc.buildDocument(company, customer, in)
	if err != nil {
		return nil, err
	}
	if err := domsunat.Apply(doc); err != nil {
		return nil, err
	}

	err = uc.txRunner.RunDocument(ctx, func(allocator repository.CorrelativeAllocator, documentRepo repository.DocumentRepository) error {
		number, err := allocator.Next(ctx, companyID, doc.Type, doc.Series)
		if err != nil {
			return err
		}
		doc.Number = number
		if err := domsunat.ValidateDocument(doc); err != nil {
			return err
		}
		if err := domsunat.EnsureTotals(doc); err != nil {
			return err
		}
		return documentRepo.Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	log := uc.log.With().Str("company_id", companyID).Str("document_id", doc.ID).Logger()
	log.Info().Str("number", doc.FullNumber()).Str("total", doc.Totals.Total.StringFixed(2)).Msg("comprobante registrado")
	publish(uc.events, doc, events.TypeDocumentCreated)

	if uc.submitter != nil {
		if err := uc.submitter.ProcessAsync(doc.ID); err != nil {
			// queda en draft: se puede reenviar con /submit
			log.Warn().Err(err).Msg("no se pudo encolar el envío")
		}
	}
	return ToDocumentResponse(doc), nil
}

func (uc *CreateDocumentUseCase) buildDocument(company *entity.Company, customer *entity.Customer, in dto.CreateDocumentRequest) (*entity.Document, error) {
	now := uc.now()
	issue := now
	if in.IssueDate != "" {
		t, err := time.ParseInLocation(dateLayout, in.IssueDate, now.Location())
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		issue = time.Date(t.Year(), t.Month(), t.Day(), now.Hour(), now.Minute(), now.Second(), 0, now.Location())
	}

	doc := &entity.Document{
		ID:             uuid.New().String(),
		CompanyID:      company.ID,
		CustomerID:     customer.ID,
		Type:           in.Type,
		Series:         strings.ToUpper(strings.TrimSpace(in.Series)),
		IssueDate:      issue,
		Currency:       strings.ToUpper(in.Currency),
		ExchangeRate:   in.ExchangeRate,
		OperationType:  in.OperationType,
		Note:           in.Note,
		GlobalDiscount: in.GlobalDiscount,
		Issuer:         company,
		Customer:       customer,
		Status:         entity.DocumentStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if doc.Currency == "" {
		doc.Currency = pkgsunat.CurrencyPEN
	}
	if doc.OperationType == "" {
		doc.OperationType = pkgsunat.OperationInternalSale
	}
	if in.DueDate != "" {
		due, err := time.ParseInLocation(dateLayout, in.DueDate, now.Location())
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		doc.DueDate = &due
	}
	if ref := in.Reference; ref != nil {
		doc.Reference = &entity.DocumentReference{
			Type:       ref.Type,
			Series:     strings.ToUpper(ref.Series),
			Number:     ref.Number,
			ReasonCode: ref.ReasonCode,
			Reason:     ref.Reason,
		}
	}

	for _, it := range in.Items {
		unit := it.UnitCode
		if unit == "" {
			unit = pkgsunat.UnitProduct
		}
		doc.Items = append(doc.Items, entity.LineItem{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			ProductCode: it.ProductCode,
			Description: it.Description,
			UnitCode:    unit,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			TaxType:     it.TaxType,
		})
	}
	return doc, nil
}

func eventFor(doc *entity.Document, eventType string) events.Event {
	return events.Event{
		Type:         eventType,
		CompanyID:    doc.CompanyID,
		DocumentID:   doc.ID,
		Number:       doc.FullNumber(),
		Status:       doc.Status,
		ResponseCode: doc.ResponseCode,
		Message:      doc.ResponseMessage,
		OccurredAt:   doc.UpdatedAt,
	}
}

// ToDocumentResponse convierte la entidad al DTO de respuesta.
func ToDocumentResponse(doc *entity.Document) *dto.DocumentResponse {
	out := &dto.DocumentResponse{
		ID:              doc.ID,
		CompanyID:       doc.CompanyID,
		CustomerID:      doc.CustomerID,
		Type:            doc.Type,
		Series:          doc.Series,
		Number:          doc.Number,
		FullNumber:      doc.FullNumber(),
		IssueDate:       doc.IssueDate.Format(dateLayout),
		Currency:        doc.Currency,
		Taxable:         doc.Totals.Taxable,
		Exempt:          doc.Totals.Exempt,
		Unaffected:      doc.Totals.Unaffected,
		Free:            doc.Totals.Free,
		IGV:             doc.Totals.IGV,
		Total:           doc.Totals.Total,
		AmountInWords:   pkgsunat.AmountInWords(doc.Totals.Total, doc.Currency),
		Status:          doc.Status,
		Hash:            doc.Hash,
		Ticket:          doc.Ticket,
		VoidTicket:      doc.VoidTicket,
		ResponseCode:    doc.ResponseCode,
		ResponseMessage: doc.ResponseMessage,
		Notes:           doc.Notes,
		Items:           make([]dto.DocumentItemResponse, 0, len(doc.Items)),
	}
	if doc.Issuer != nil && doc.Customer != nil {
		if qr, err := domsunat.BuildQRPayload(doc); err == nil {
			out.QRData = qr
		}
	}
	for _, it := range doc.Items {
		out.Items = append(out.Items, dto.DocumentItemResponse{
			ID:             it.ID,
			ProductCode:    it.ProductCode,
			Description:    it.Description,
			UnitCode:       it.UnitCode,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Discount:       it.Discount,
			TaxType:        it.TaxType,
			TaxableBase:    it.TaxableBase,
			TaxAmount:      it.TaxAmount,
			Total:          it.Total,
			ReferencePrice: it.ReferencePrice,
		})
	}
	return out
}
