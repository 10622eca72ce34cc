package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

type documentCreator interface {
	Create(ctx context.Context, companyID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
}

type documentSubmitter interface {
	Submit(ctx context.Context, companyID, documentID string) (*dto.DocumentStatusDTO, error)
}

type documentVoider interface {
	Void(ctx context.Context, companyID, documentID string, in dto.VoidDocumentRequest) (*dto.DocumentStatusDTO, error)
}

type documentReader interface {
	GetDocument(ctx context.Context, companyID, documentID string) (*dto.DocumentResponse, error)
	List(ctx context.Context, companyID string, page dto.PageRequest) ([]*dto.DocumentResponse, error)
	SignedXML(ctx context.Context, companyID, documentID string) ([]byte, string, error)
	CDR(ctx context.Context, companyID, documentID string) ([]byte, error)
}

// DocumentHandler expone emisión, envío, baja y consulta de comprobantes.
type DocumentHandler struct {
	create documentCreator
	submit documentSubmitter
	void   documentVoider
	query  documentReader
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(create documentCreator, submit documentSubmitter, void documentVoider, query documentReader) *DocumentHandler {
	return &DocumentHandler{create: create, submit: submit, void: void, query: query}
}

// Create POST /api/documents
// Responde 201 con el comprobante en draft; el envío a SUNAT sigue en segundo plano.
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.create.Create(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.query.GetDocument(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List GET /api/documents?limit=20&offset=0
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit y offset deben ser enteros"})
	}
	page.Normalize()
	list, err := h.query.List(c.UserContext(), companyID, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"items": list,
		"page":  page.Response(),
	})
}

// Submit POST /api/documents/:id/submit
// Envío síncrono; sirve para reintentar un comprobante en draft o exception.
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.submit.Submit(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Void POST /api/documents/:id/void
func (h *DocumentHandler) Void(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.VoidDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.void.Void(c.UserContext(), companyID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if out.VoidTicket != "" && out.Status != entity.DocumentStatusVoided {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(out)
}

// SignedXML GET /api/documents/:id/xml
func (h *DocumentHandler) SignedXML(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	xml, filename, err := h.query.SignedXML(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.Send(xml)
}

// CDR GET /api/documents/:id/cdr
func (h *DocumentHandler) CDR(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	cdr, err := h.query.CDR(c.UserContext(), companyID, id)
	if err != nil {
		return writeError(c, err)
	}
	c.Attachment("R-" + id + ".zip")
	c.Set(fiber.HeaderContentType, "application/zip")
	return c.Send(cdr)
}
