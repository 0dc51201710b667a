package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth          AuthService
	DocumentClass DocumentClassService
	Invoices      InvoiceService
	InvoicePDF    InvoicePDFService
	Pickings      PickingService
	JWTSecret     string
	JWTIssuer     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authHandler := NewAuthHandler(deps.Auth)
	api.Post("/auth/login", authHandler.Login)

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	classHandler := NewDocumentClassHandler(deps.DocumentClass)
	protected.Get("/document-classes", classHandler.List)

	billers := RequireRole(entity.RoleAdmin, entity.RoleFacturador)
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.InvoicePDF)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/barcode", invoiceHandler.Barcode)
	invoices.Get("/:id/pdf", invoiceHandler.PDF)
	invoices.Post("/", billers, invoiceHandler.Create)
	invoices.Put("/:id/lines", billers, invoiceHandler.UpdateLines)
	invoices.Post("/:id/validate", billers, invoiceHandler.Validate)
	invoices.Post("/:id/refund", billers, invoiceHandler.Refund)

	warehouse := RequireRole(entity.RoleAdmin, entity.RoleBodeguero)
	pickings := protected.Group("/pickings")
	pickingHandler := NewPickingHandler(deps.Pickings)
	pickings.Get("/:id", pickingHandler.GetByID)
	pickings.Post("/", warehouse, pickingHandler.Create)
	pickings.Post("/:id/done", warehouse, pickingHandler.Done)
}
