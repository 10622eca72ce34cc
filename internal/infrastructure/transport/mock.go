package transport

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// MockConfig controla el simulador. ForceStatus y ForceErrorCode fuerzan caminos negativos.
type MockConfig struct {
	Delay          time.Duration
	ForceStatus    string
	ForceErrorCode string
}

// MockAdapter simula SUNAT sin red: construye el XML real y devuelve un CDR sintético.
type MockAdapter struct {
	cfg     MockConfig
	builder *infrasunat.XMLBuilderService
	now     func() time.Time
	log     zerolog.Logger
}

// NewMockAdapter construye el simulador.
func NewMockAdapter(cfg MockConfig, log zerolog.Logger) *MockAdapter {
	return &MockAdapter{
		cfg:     cfg,
		builder: infrasunat.NewXMLBuilderService(),
		now:     time.Now,
		log:     log.With().Str("provider", entity.ProviderMock).Logger(),
	}
}

func (a *MockAdapter) Name() string { return entity.ProviderMock }

func (a *MockAdapter) SupportedDocumentTypes() []string { return invoiceFamily }

// wait respeta el retardo configurado; la cancelación del contexto se reporta como exception.
func (a *MockAdapter) wait(ctx context.Context) *entity.TransportResult {
	if a.cfg.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(a.cfg.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return exceptionResult("", "mock: "+ctx.Err().Error())
	}
}

// randomDigest genera un DigestValue pseudoaleatorio (SHA-256 de un UUID, en Base64).
func randomDigest() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SendDocument devuelve aceptado salvo que se fuerce otro estado.
func (a *MockAdapter) SendDocument(ctx context.Context, doc *entity.Document) (*entity.TransportResult, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	xmlBytes, err := a.builder.Build(doc)
	if err != nil {
		return nil, err
	}
	if res := a.wait(ctx); res != nil {
		return res, nil
	}

	status, code, message := a.outcome()
	result := &entity.TransportResult{
		Success:         isSuccess(status),
		Status:          status,
		ResponseCode:    code,
		ResponseMessage: message,
		Hash:            randomDigest(),
		SignedXML:       xmlBytes,
	}
	if status != entity.DocumentStatusException {
		cdr, err := a.syntheticCDR(doc, code, message)
		if err != nil {
			return nil, err
		}
		result.CDR = cdr
	}

	a.log.Info().Str("document_id", doc.ID).Str("number", doc.FullNumber()).
		Str("status", status).Str("code", code).Msg("mock: comprobante procesado")
	return result, nil
}

// outcome resuelve estado, código y mensaje a partir de la configuración.
func (a *MockAdapter) outcome() (status, code, message string) {
	if a.cfg.ForceStatus == "" && a.cfg.ForceErrorCode == "" {
		msg, _ := pkgsunat.ResponseMessage(pkgsunat.ResponseStatusProcessedOK)
		return entity.DocumentStatusAccepted, pkgsunat.ResponseStatusProcessedOK, msg
	}
	code = a.cfg.ForceErrorCode
	status = a.cfg.ForceStatus
	if status == "" {
		status = domsunat.StatusForResponseCode(code)
	}
	if code == "" {
		code = defaultCodeFor(status)
	}
	message, ok := pkgsunat.ResponseMessage(code)
	if !ok {
		message = fmt.Sprintf("Simulación: código %s", code)
	}
	return status, code, message
}

func defaultCodeFor(status string) string {
	switch status {
	case entity.DocumentStatusRejected:
		return "2010"
	case entity.DocumentStatusObserved:
		return "4287"
	case entity.DocumentStatusException:
		return "100"
	default:
		return pkgsunat.ResponseStatusProcessedOK
	}
}

func (a *MockAdapter) syntheticCDR(doc *entity.Document, code, message string) ([]byte, error) {
	var notes []string
	if code != pkgsunat.ResponseStatusProcessedOK && a.cfg.ForceStatus == entity.DocumentStatusObserved {
		notes = []string{code + " - " + message}
		code = pkgsunat.ResponseStatusProcessedOK
	}
	xmlBytes, err := infrasunat.BuildCDR(doc.FullNumber(), code, message, notes, a.now())
	if err != nil {
		return nil, err
	}
	base := infrasunat.DocumentBaseName(doc.Issuer.RUC, doc)
	return infrasunat.ZipDocument("R-"+base+".xml", xmlBytes)
}

// QueryStatus siempre responde aceptado.
func (a *MockAdapter) QueryStatus(ctx context.Context, ticket string) (*entity.TransportResult, error) {
	if res := a.wait(ctx); res != nil {
		res.Ticket = ticket
		return res, nil
	}
	msg, _ := pkgsunat.ResponseMessage(pkgsunat.ResponseStatusProcessedOK)
	return &entity.TransportResult{
		Success:         true,
		Status:          entity.DocumentStatusAccepted,
		ResponseCode:    pkgsunat.ResponseStatusProcessedOK,
		ResponseMessage: msg,
		Ticket:          ticket,
	}, nil
}

// VoidDocument devuelve pending con un ticket aleatorio.
func (a *MockAdapter) VoidDocument(ctx context.Context, req *entity.VoidRequest) (*entity.TransportResult, error) {
	if err := validateVoidRequest(req); err != nil {
		return nil, err
	}
	if res := a.wait(ctx); res != nil {
		return res, nil
	}
	ticket := uuid.NewString()
	a.log.Info().Str("document_id", req.Document.ID).Str("ticket", ticket).Msg("mock: baja recibida")
	return &entity.TransportResult{
		Status:          entity.DocumentStatusPending,
		Ticket:          ticket,
		ResponseMessage: "Simulación: comunicación de baja recibida",
	}, nil
}
