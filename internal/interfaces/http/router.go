package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// companyAPI es lo que el router necesita de la empresa: handler y middleware.
type companyAPI interface {
	companyService
	companyChecker
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth      authService
	Companies companyAPI
	Customers customerService
	Create    documentCreator
	Submit    documentSubmitter
	Void      documentVoider
	Query     documentReader
	Health    func(ctx context.Context) error
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Health))

	api := app.Group("/api")

	authHandler := NewAuthHandler(deps.Auth)
	api.Post("/auth/login", authHandler.Login)

	companyHandler := NewCompanyHandler(deps.Companies)
	// Alta de emisor (público); el primer admin se crea con un token de cmd/token.
	api.Post("/companies", companyHandler.Create)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(entity.RoleAdmin, entity.RoleIssuer)
	active := RequireActiveCompany(deps.Companies)

	company := protected.Group("/company")
	company.Get("/", companyHandler.Current)
	company.Put("/settings", RequireRole(entity.RoleAdmin), companyHandler.UpdateSettings)

	users := protected.Group("/users", RequireRole(entity.RoleAdmin))
	users.Post("/", authHandler.CreateUser)
	users.Get("/", authHandler.ListUsers)

	customers := protected.Group("/customers")
	customerHandler := NewCustomerHandler(deps.Customers)
	customers.Post("/", writers, customerHandler.Create)
	customers.Get("/", customerHandler.List)
	customers.Get("/:id", customerHandler.GetByID)

	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.Create, deps.Submit, deps.Void, deps.Query)
	documents.Post("/", writers, active, documentHandler.Create)
	documents.Get("/", documentHandler.List)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Post("/:id/submit", writers, active, documentHandler.Submit)
	documents.Post("/:id/void", writers, active, documentHandler.Void)
	documents.Get("/:id/xml", documentHandler.SignedXML)
	documents.Get("/:id/cdr", documentHandler.CDR)
}

func healthHandler(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
