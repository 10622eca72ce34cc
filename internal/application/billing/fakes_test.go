package billing_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/transport"
)

const (
	companyID  = "company-1"
	customerID = "customer-1"
	issuerRUC  = "20131312955"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// memStore es un almacén en memoria para empresas, clientes, comprobantes y correlativos.
type memStore struct {
	mu        sync.Mutex
	companies map[string]*entity.Company
	customers map[string]*entity.Customer
	documents map[string]entity.Document
	counters  map[string]int64
	updates   int
}

func newMemStore() *memStore {
	s := &memStore{
		companies: map[string]*entity.Company{},
		customers: map[string]*entity.Customer{},
		documents: map[string]entity.Document{},
		counters:  map[string]int64{},
	}
	s.companies[companyID] = &entity.Company{
		ID:        companyID,
		RUC:       issuerRUC,
		LegalName: "EMPRESA DE PRUEBA S.A.C.",
		Address:   "AV. LOS OLIVOS 123",
		Status:    "active",
		Provider:  entity.ProviderMock,
	}
	s.customers[customerID] = &entity.Customer{
		ID:             customerID,
		CompanyID:      companyID,
		IdentityType:   "6",
		IdentityNumber: "20100070970",
		Name:           "CLIENTE CORPORATIVO S.A.",
		Address:        "JR. HUALLAGA 456",
	}
	return s
}

func (s *memStore) doc(id string) *entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil
	}
	return &d
}

func (s *memStore) put(doc *entity.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	cp.Issuer, cp.Customer = nil, nil
	s.documents[doc.ID] = cp
}

// documentRepo

type memDocumentRepo struct{ s *memStore }

func (r memDocumentRepo) Create(_ context.Context, doc *entity.Document) error {
	r.s.mu.Lock()
	for _, existing := range r.s.documents {
		if existing.CompanyID == doc.CompanyID && existing.Type == doc.Type &&
			existing.Series == doc.Series && existing.Number == doc.Number {
			r.s.mu.Unlock()
			return fmt.Errorf("duplicado %s", doc.FullNumber())
		}
	}
	r.s.mu.Unlock()
	r.s.put(doc)
	return nil
}

func (r memDocumentRepo) UpdateSubmission(_ context.Context, doc *entity.Document, expected string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.documents[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return fmt.Errorf("%w: se esperaba %s y está en %s", domain.ErrConflict, expected, current.Status)
	}
	r.s.updates++
	cp := *doc
	cp.Issuer, cp.Customer = nil, nil
	r.s.documents[doc.ID] = cp
	return nil
}

func (r memDocumentRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	return r.s.doc(id), nil
}

func (r memDocumentRepo) GetByNumber(_ context.Context, company, docType, series string, number int64) (*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.documents {
		if d.CompanyID == company && d.Type == docType && d.Series == series && d.Number == number {
			cp := d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memDocumentRepo) ListByCompany(_ context.Context, company string, limit, offset int) ([]*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.s.documents {
		if d.CompanyID == company {
			cp := d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memDocumentRepo) ListAwaitingTicket(_ context.Context, limit int) ([]*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.s.documents {
		pending := d.Status == entity.DocumentStatusPending && d.Ticket != ""
		voiding := d.Status == entity.DocumentStatusAccepted && d.VoidTicket != ""
		if pending || voiding {
			cp := d
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memDocumentRepo) ListStalePending(_ context.Context, before time.Time, limit int) ([]*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.s.documents {
		if d.Status == entity.DocumentStatusPending && d.Ticket == "" && d.UpdatedAt.Before(before) {
			cp := d
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// company / customer repos

type memCompanyRepo struct{ s *memStore }

func (r memCompanyRepo) Create(_ context.Context, c *entity.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.companies[c.ID] = c
	return nil
}

func (r memCompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memCompanyRepo) GetByRUC(_ context.Context, ruc string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.companies {
		if c.RUC == ruc {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memCompanyRepo) Update(ctx context.Context, c *entity.Company) error { return r.Create(ctx, c) }

type memCustomerRepo struct{ s *memStore }

func (r memCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.customers[c.ID] = c
	return nil
}

func (r memCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memCustomerRepo) GetByCompanyAndIdentity(_ context.Context, company, idType, idNumber string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.CompanyID == company && c.IdentityType == idType && c.IdentityNumber == idNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memCustomerRepo) ListByCompany(_ context.Context, company string, limit, offset int) ([]*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Customer
	for _, c := range r.s.customers {
		if c.CompanyID == company {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memCustomerRepo) Update(ctx context.Context, c *entity.Customer) error { return r.Create(ctx, c) }

// memTxRunner restaura correlativos y comprobantes si fn falla.
type memTxRunner struct{ s *memStore }

type memAllocator struct{ s *memStore }

func (a memAllocator) Next(_ context.Context, company, docType, series string) (int64, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	key := company + "|" + docType + "|" + series
	a.s.counters[key]++
	return a.s.counters[key], nil
}

func (t memTxRunner) RunDocument(_ context.Context, fn func(repository.CorrelativeAllocator, repository.DocumentRepository) error) error {
	t.s.mu.Lock()
	counters := make(map[string]int64, len(t.s.counters))
	for k, v := range t.s.counters {
		counters[k] = v
	}
	documents := make(map[string]entity.Document, len(t.s.documents))
	for k, v := range t.s.documents {
		documents[k] = v
	}
	t.s.mu.Unlock()

	if err := fn(memAllocator{t.s}, memDocumentRepo{t.s}); err != nil {
		t.s.mu.Lock()
		t.s.counters, t.s.documents = counters, documents
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// adapters

type staticResolver struct {
	adapter transport.Adapter
	err     error
}

func (r staticResolver) AdapterFor(context.Context, *entity.Company) (transport.Adapter, error) {
	return r.adapter, r.err
}

// stubAdapter permite fijar las respuestas de cada operación.
type stubAdapter struct {
	send  func(*entity.Document) (*entity.TransportResult, error)
	query func(ticket string) (*entity.TransportResult, error)
	void  func(*entity.VoidRequest) (*entity.TransportResult, error)

	mu      sync.Mutex
	queried []string
	voids   []*entity.VoidRequest
}

func (a *stubAdapter) Name() string                     { return "stub" }
func (a *stubAdapter) SupportedDocumentTypes() []string { return []string{"01", "03", "07", "08"} }

func (a *stubAdapter) SendDocument(_ context.Context, doc *entity.Document) (*entity.TransportResult, error) {
	return a.send(doc)
}

func (a *stubAdapter) QueryStatus(_ context.Context, ticket string) (*entity.TransportResult, error) {
	a.mu.Lock()
	a.queried = append(a.queried, ticket)
	a.mu.Unlock()
	return a.query(ticket)
}

func (a *stubAdapter) VoidDocument(_ context.Context, req *entity.VoidRequest) (*entity.TransportResult, error) {
	a.mu.Lock()
	a.voids = append(a.voids, req)
	a.mu.Unlock()
	return a.void(req)
}

// events

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingSubmitter struct {
	ids []string
	err error
}

func (s *recordingSubmitter) ProcessAsync(id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

func invoiceRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		Type:       "01",
		Series:     "f001",
		CustomerID: customerID,
		Items: []dto.DocumentItemRequest{{
			ProductCode: "P001",
			Description: "Servicio de consultoría",
			UnitCode:    "ZZ",
			Quantity:    d("1"),
			UnitPrice:   d("500.00"),
			TaxType:     "10",
		}},
	}
}

// seedDocument guarda un comprobante ya calculado en el estado indicado.
func seedDocument(s *memStore, id, status string, issue time.Time) *entity.Document {
	s.mu.Lock()
	number := int64(len(s.documents) + 1)
	s.mu.Unlock()
	doc := &entity.Document{
		ID:            id,
		CompanyID:     companyID,
		CustomerID:    customerID,
		Type:          "01",
		Series:        "F001",
		Number:        number,
		IssueDate:     issue,
		Currency:      "PEN",
		OperationType: "0101",
		Status:        status,
		Items: []entity.LineItem{{
			ID: id + "-1", DocumentID: id, Description: "Servicio", UnitCode: "ZZ",
			Quantity: d("1"), UnitPrice: d("500.00"), TaxType: "10",
		}},
		CreatedAt: issue,
		UpdatedAt: issue,
	}
	if err := domsunat.Apply(doc); err != nil {
		panic(err)
	}
	s.put(doc)
	return s.doc(id)
}
