package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, company_id, customer_id, document_type, series, number, issue_date, due_date,
	currency, exchange_rate, operation_type, note, global_discount,
	taxable, exempt, unaffected, free, igv, subtotal, total, total_discount,
	ref_type, ref_series, ref_number, ref_reason_code, ref_reason,
	status, hash, ticket, void_ticket, void_reason, response_code, response_message, notes,
	signed_xml, cdr, created_at, updated_at`

// Create persiste cabecera y líneas. Debe correr dentro de la tx que asignó el correlativo.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	var refType, refSeries, refReasonCode, refReason *string
	var refNumber *int64
	if ref := doc.Reference; ref != nil {
		refType, refSeries = &ref.Type, &ref.Series
		refNumber = &ref.Number
		refReasonCode, refReason = &ref.ReasonCode, &ref.Reason
	}
	notes := doc.Notes
	if notes == nil {
		notes = []string{}
	}
	t := doc.Totals
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		        $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.CustomerID, doc.Type, doc.Series, doc.Number, doc.IssueDate, doc.DueDate,
		doc.Currency, doc.ExchangeRate, doc.OperationType, doc.Note, doc.GlobalDiscount,
		t.Taxable, t.Exempt, t.Unaffected, t.Free, t.IGV, t.Subtotal, t.Total, t.GlobalDiscount,
		refType, refSeries, refNumber, refReasonCode, refReason,
		doc.Status, nullIfEmpty(doc.Hash), nullIfEmpty(doc.Ticket), nullIfEmpty(doc.VoidTicket), nullIfEmpty(doc.VoidReason),
		nullIfEmpty(doc.ResponseCode), nullIfEmpty(doc.ResponseMessage), notes,
		nullIfEmpty(doc.SignedXML), doc.CDR, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("comprobante %s: %w", doc.FullNumber(), domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}

	for i := range doc.Items {
		if err := r.createItem(ctx, doc.ID, i+1, &doc.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepo) createItem(ctx context.Context, documentID string, position int, it *entity.LineItem) error {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	it.DocumentID = documentID
	query := `
		INSERT INTO document_items (id, document_id, position, product_code, description, unit_code, quantity,
		                            unit_price, discount, tax_type, taxable_base, tax_amount, total, is_free,
		                            reference_price, bucket)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		it.ID, documentID, position, it.ProductCode, it.Description, it.UnitCode, it.Quantity,
		it.UnitPrice, it.Discount, it.TaxType, it.TaxableBase, it.TaxAmount, it.Total, it.IsFree,
		it.ReferencePrice, it.Bucket,
	)
	if err != nil {
		return fmt.Errorf("insert document item: %w", err)
	}
	return nil
}

// UpdateSubmission actualiza los campos del envío si el comprobante sigue en expectedStatus.
// Las líneas y totales no cambian.
func (r *DocumentRepo) UpdateSubmission(ctx context.Context, doc *entity.Document, expectedStatus string) error {
	notes := doc.Notes
	if notes == nil {
		notes = []string{}
	}
	query := `
		UPDATE documents
		SET status           = $2,
		    hash             = COALESCE($3, hash),
		    ticket           = COALESCE($4, ticket),
		    void_ticket      = $5,
		    void_reason      = $6,
		    response_code    = $7,
		    response_message = $8,
		    notes            = $9,
		    signed_xml       = COALESCE($10, signed_xml),
		    cdr              = COALESCE($11, cdr),
		    updated_at       = $12
		WHERE id = $1 AND status = $13`
	tag, err := r.q.Exec(ctx, query,
		doc.ID, doc.Status,
		nullIfEmpty(doc.Hash), nullIfEmpty(doc.Ticket),
		nullIfEmpty(doc.VoidTicket), nullIfEmpty(doc.VoidReason),
		nullIfEmpty(doc.ResponseCode), nullIfEmpty(doc.ResponseMessage), notes,
		nullIfEmpty(doc.SignedXML), doc.CDR, doc.UpdatedAt,
		expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.q.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, doc.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return fmt.Errorf("%w: se esperaba %s y el comprobante está en %s", domain.ErrConflict, expectedStatus, current)
}

// GetByID obtiene el comprobante con sus líneas; nil si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByNumber busca por la clave legal empresa + tipo + serie + número.
func (r *DocumentRepo) GetByNumber(ctx context.Context, companyID, docType, series string, number int64) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents WHERE company_id = $1 AND document_type = $2 AND series = $3 AND number = $4`
	return r.getOne(ctx, query, companyID, docType, series, number)
}

func (r *DocumentRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Document, error) {
	doc, err := scanDocument(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	items, err := r.items(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return doc, nil
}

// ListByCompany lista cabeceras (sin líneas) de la empresa, más recientes primero.
func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents WHERE company_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, companyID, limit, offset)
}

// ListAwaitingTicket devuelve envíos pendientes con ticket y bajas en curso, los más antiguos primero.
func (r *DocumentRepo) ListAwaitingTicket(ctx context.Context, limit int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE (status = 'pending' AND ticket IS NOT NULL)
		   OR (status = 'accepted' AND void_ticket IS NOT NULL)
		ORDER BY updated_at ASC LIMIT $1`
	return r.list(ctx, query, limit)
}

// ListStalePending devuelve envíos en pending sin ticket no actualizados desde before.
func (r *DocumentRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE status = 'pending' AND ticket IS NULL AND updated_at < $1
		ORDER BY updated_at ASC LIMIT $2`
	return r.list(ctx, query, before, limit)
}

func (r *DocumentRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Document, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *DocumentRepo) items(ctx context.Context, documentID string) ([]entity.LineItem, error) {
	query := `
		SELECT id, document_id, product_code, description, unit_code, quantity, unit_price, discount,
		       tax_type, taxable_base, tax_amount, total, is_free, reference_price, bucket
		FROM document_items WHERE document_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document items: %w", err)
	}
	defer rows.Close()
	var list []entity.LineItem
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.ProductCode, &it.Description, &it.UnitCode,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxType, &it.TaxableBase, &it.TaxAmount,
			&it.Total, &it.IsFree, &it.ReferencePrice, &it.Bucket); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var due *time.Time
	var refType, refSeries, refReasonCode, refReason *string
	var refNumber *int64
	var hash, ticket, voidTicket, voidReason, code, message, signed *string
	var exchange, discount decimal.Decimal
	t := &doc.Totals
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.CustomerID, &doc.Type, &doc.Series, &doc.Number, &doc.IssueDate, &due,
		&doc.Currency, &exchange, &doc.OperationType, &doc.Note, &discount,
		&t.Taxable, &t.Exempt, &t.Unaffected, &t.Free, &t.IGV, &t.Subtotal, &t.Total, &t.GlobalDiscount,
		&refType, &refSeries, &refNumber, &refReasonCode, &refReason,
		&doc.Status, &hash, &ticket, &voidTicket, &voidReason, &code, &message, &doc.Notes,
		&signed, &doc.CDR, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.DueDate = due
	doc.ExchangeRate = exchange
	doc.GlobalDiscount = discount
	if refType != nil {
		doc.Reference = &entity.DocumentReference{
			Type:       *refType,
			Series:     derefStr(refSeries),
			ReasonCode: derefStr(refReasonCode),
			Reason:     derefStr(refReason),
		}
		if refNumber != nil {
			doc.Reference.Number = *refNumber
		}
	}
	doc.Hash = derefStr(hash)
	doc.Ticket = derefStr(ticket)
	doc.VoidTicket = derefStr(voidTicket)
	doc.VoidReason = derefStr(voidReason)
	doc.ResponseCode = derefStr(code)
	doc.ResponseMessage = derefStr(message)
	doc.SignedXML = derefStr(signed)
	return &doc, nil
}
