package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturacion-sunat/internal/application/auth"
	"github.com/jhoicas/facturacion-sunat/internal/application/billing"
	"github.com/jhoicas/facturacion-sunat/internal/application/events"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/transport"
	httpRouter "github.com/jhoicas/facturacion-sunat/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sunat/pkg/config"
	"github.com/jhoicas/facturacion-sunat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("sunat_env", cfg.SUNAT.Environment).
		Str("provider", cfg.SUNAT.DefaultProvider).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, postgres.PoolOptions{
		MaxConns: int32(cfg.SUNAT.Workers) + 10,
	}, log.Component("postgres"))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log.Component("postgres")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	broker := events.NewBroker(0, log.Zerolog())
	auditDone := events.Audit(broker, log.Component("audit"))

	adapters := billing.NewAdapterRegistry(transport.Defaults{
		Provider:         cfg.SUNAT.DefaultProvider,
		Environment:      cfg.SUNAT.Environment,
		EndpointOverride: cfg.SUNAT.EndpointOverride,
		Timeout:          cfg.SUNAT.Timeout,
		Mock: transport.MockConfig{
			Delay:          cfg.SUNAT.MockDelay,
			ForceStatus:    cfg.SUNAT.MockForceStatus,
			ForceErrorCode: cfg.SUNAT.MockForceErrorCode,
		},
	}, nil, log.Component("transport"))

	// Envío: pool de workers → adaptador (SUNAT directo, OSE o simulador) → persistencia del CDR
	orchestrator := billing.NewSubmissionOrchestrator(
		documentRepo, companyRepo, customerRepo, adapters, broker,
		billing.OrchestratorConfig{
			Workers:    cfg.SUNAT.Workers,
			QueueSize:  cfg.SUNAT.QueueSize,
			JobTimeout: cfg.SUNAT.JobTimeout,
		},
		log.Component("orchestrator"),
	)
	orchestrator.Start()

	poller := billing.NewTicketPoller(documentRepo, companyRepo, adapters, broker,
		cfg.SUNAT.PollInterval, log.Component("poller"))
	poller.SetStaleAfter(cfg.SUNAT.JobTimeout + 10*time.Minute)
	poller.Start()

	createDocumentUC := billing.NewCreateDocumentUseCase(txRunner, companyRepo, customerRepo,
		orchestrator, broker, log.Component("documents"))
	voidUC := billing.NewVoidDocumentUseCase(txRunner, documentRepo, companyRepo, customerRepo,
		adapters, broker, log.Component("void"))
	queryUC := billing.NewDocumentQueryUseCase(documentRepo, companyRepo, customerRepo)
	customerUC := billing.NewCustomerUseCase(customerRepo)
	companyUC := billing.NewCompanyUseCase(companyRepo, adapters, log.Zerolog())
	authUC := auth.NewAuthUseCase(postgres.NewUserRepository(pool), companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SUNAT.JobTimeout + 10*time.Second, // /submit espera la respuesta de SUNAT
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:      authUC,
		Companies: companyUC,
		Customers: customerUC,
		Create:    createDocumentUC,
		Submit:    orchestrator,
		Void:      voidUC,
		Query:     queryUC,
		Health:    pool.Ping,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	poller.Stop()
	orchestrator.Stop()
	broker.Close()
	<-auditDone

	log.Info().Msg("aplicación detenida")
}
