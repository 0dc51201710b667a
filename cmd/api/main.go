package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/sii-etd-api/internal/application/auth"
	"github.com/jhoicas/sii-etd-api/internal/application/billing"
	"github.com/jhoicas/sii-etd-api/internal/application/etd"
	"github.com/jhoicas/sii-etd-api/internal/application/stock"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/barcode"
	infrapdf "github.com/jhoicas/sii-etd-api/internal/infrastructure/pdf"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/postgres"
	"github.com/jhoicas/sii-etd-api/internal/infrastructure/queue"
	infrasii "github.com/jhoicas/sii-etd-api/internal/infrastructure/sii"
	httpRouter "github.com/jhoicas/sii-etd-api/internal/interfaces/http"
	"github.com/jhoicas/sii-etd-api/pkg/config"
	"github.com/jhoicas/sii-etd-api/pkg/logger"
)

// signQueue cola de firma (memoria o Redis).
type signQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Start(ctx context.Context, h queue.Handler)
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("sii_environment", cfg.SII.Environment).
		Str("queue", cfg.Queue.Backend).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("postgres.migrate")); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	pickingRepo := postgres.NewPickingRepository(pool)
	classRepo := postgres.NewDocumentClassRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Material SII: sin CAF el TED queda sin FRMT; sin certificado el DTE queda sin firma XML.
	cafs := infrasii.NewCAFStore()
	if cfg.SII.CAFPath != "" {
		if cafs, err = infrasii.LoadCAFDir(cfg.SII.CAFPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.SII.CAFPath).Msg("cargar CAF")
		}
	} else {
		log.Warn().Msg("SII_CAF_KEY_PATH vacío: los timbres se generarán sin firma")
	}
	cert, err := infrasii.LoadCertificate(cfg.SII.CertPath, cfg.SII.CertKeyPath, cfg.SII.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar certificado digital")
	}

	var jobs signQueue
	jobTimeout := time.Duration(cfg.Queue.JobTimeoutSeconds) * time.Second
	switch cfg.Queue.Backend {
	case config.QueueBackendRedis:
		client, err := queue.NewRedisClient(queue.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		jobs = queue.NewRedisQueue(client, cfg.Redis.QueueKey, cfg.Queue.Workers, jobTimeout, log.Component("queue.redis"))
	default:
		jobs = queue.NewMemoryQueue(cfg.Queue.Workers, cfg.Queue.Buffer, jobTimeout, log.Component("queue.memory"))
	}

	classSvc := etd.NewDocumentClassService(classRepo, log.Zerolog())
	signUC := etd.NewSignUseCase(
		invoiceRepo, pickingRepo, companyRepo, customerRepo, classRepo,
		infrasii.NewTEDBuilder(), infrasii.NewDTEBuilder(), infrasii.NewXMLSigner(cert), cafs,
		cfg.SII.Environment, log.Zerolog(),
	)
	jobs.Start(ctx, signUC.Handle)

	renderer := barcode.NewPDF417Renderer()
	barcodeCfg := billing.BarcodeConfig{Ratio: cfg.SII.BarcodeRatio}
	invoiceUC := billing.NewInvoiceUseCase(
		txRunner, invoiceRepo, customerRepo, companyRepo, classSvc, jobs, cafs,
		renderer, barcodeCfg, log.Zerolog(),
	)
	pdfUC := billing.NewPDFUseCase(
		invoiceRepo, companyRepo, customerRepo, classSvc, renderer, barcodeCfg,
		infrapdf.NewMarotoPDFGenerator(), log.Zerolog(),
	)
	pickingUC := stock.NewPickingUseCase(pickingRepo, customerRepo, companyRepo, classSvc, jobs, cafs, log.Zerolog())
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "SII ETD API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:          authUC,
		DocumentClass: classSvc,
		Invoices:      invoiceUC,
		InvoicePDF:    pdfUC,
		Pickings:      pickingUC,
		JWTSecret:     cfg.JWT.Secret,
		JWTIssuer:     cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Los trabajos en curso terminan antes de cerrar el pool.
	if err := jobs.Close(); err != nil {
		log.Error().Err(err).Msg("cerrar cola de firma")
	}
	log.Info().Msg("aplicación detenida")
	_ = os.Stdout.Sync()
}
