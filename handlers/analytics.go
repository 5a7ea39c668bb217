package handlers

import (
	"errors"
	"log"

	"referral-flow-bot/middleware"
	"referral-flow-bot/services"

	"github.com/gofiber/fiber/v2"
)

// AnalyticsHandler exposes the reporting queries and the admin work queue
// over HTTP. The core services stay framework-free; this layer only
// translates errors to status codes.
type AnalyticsHandler struct {
	Reports      *services.ReportService
	Applications *services.ApplicationService
	Calc         *services.BonusCalculator
	Identity     *services.IdentityService
}

func SetupAnalyticsRoutes(app *fiber.App, token string, h *AnalyticsHandler) {
	admin := app.Group("/", middleware.AdminAuthMiddleware(token))

	admin.Get("/analytics/summary", h.GetSummary)
	admin.Get("/analytics/finance/details", h.GetFinanceDetails)
	admin.Get("/analytics/finance/by-product", h.GetFinanceByProduct)
	admin.Get("/analytics/traffic", h.GetTraffic)
	admin.Get("/analytics/traffic/projection", h.GetProjection)
	admin.Get("/analytics/users", h.GetUsers)

	admin.Get("/applications/pending", h.GetPending)
	admin.Post("/applications/:id/approve", h.ApproveApplication)
	admin.Post("/applications/:id/reject", h.RejectApplication)

	// Hard data-erasure endpoint; the bot's self-service flow anonymizes
	// instead so aggregate history survives.
	admin.Delete("/users/:id", h.EraseUser)
}

func (h *AnalyticsHandler) EraseUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	if err := h.Identity.Erase(int64(id)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Printf("DB error erasing user %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "erase failed"})
	}
	return c.JSON(fiber.Map{"status": "erased"})
}

func (h *AnalyticsHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.Reports.Summary()
	if err != nil {
		log.Printf("DB error on summary: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build summary"})
	}
	return c.JSON(summary)
}

func (h *AnalyticsHandler) GetFinanceDetails(c *fiber.Ctx) error {
	rows, err := h.Reports.FinanceDetails(c.QueryInt("days", 30))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load finance details"})
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) GetFinanceByProduct(c *fiber.Ctx) error {
	rows, err := h.Reports.FinanceByProduct(c.QueryInt("days", 30))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product finance"})
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) GetTraffic(c *fiber.Ctx) error {
	rows, err := h.Reports.TrafficOverview(c.QueryInt("days", 30))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load traffic overview"})
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) GetProjection(c *fiber.Ctx) error {
	proj, err := h.Reports.Projection(c.QueryInt("days", 30))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load projection"})
	}
	return c.JSON(proj)
}

func (h *AnalyticsHandler) GetUsers(c *fiber.Ctx) error {
	rows, err := h.Reports.AdminUsersPage(c.QueryInt("limit", 10), c.QueryInt("offset", 0))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load users"})
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) GetPending(c *fiber.Ctx) error {
	apps, err := h.Applications.Pending()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load pending queue"})
	}
	return c.JSON(apps)
}

func (h *AnalyticsHandler) ApproveApplication(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid application id"})
	}

	var req struct {
		BonusAmount int64 `json:"bonus_amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.Applications.Approve(int64(id), req.BonusAmount); err != nil {
		return h.transitionError(c, int64(id), err)
	}
	h.recalcOwner(int64(id))
	return c.JSON(fiber.Map{"status": "approved"})
}

func (h *AnalyticsHandler) RejectApplication(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid application id"})
	}
	if err := h.Applications.Reject(int64(id)); err != nil {
		return h.transitionError(c, int64(id), err)
	}
	h.recalcOwner(int64(id))
	return c.JSON(fiber.Map{"status": "rejected"})
}

// recalcOwner refreshes the owner's rollup after a status transition.
func (h *AnalyticsHandler) recalcOwner(applicationID int64) {
	app, err := h.Applications.Get(applicationID)
	if err != nil {
		log.Printf("recalc lookup failed for application %d: %v", applicationID, err)
		return
	}
	if err := h.Calc.Recalculate(app.UserID); err != nil {
		log.Printf("recalc failed for user %d: %v", app.UserID, err)
	}
}

func (h *AnalyticsHandler) transitionError(c *fiber.Ctx, id int64, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "application not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already processed"})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("DB error on application %d transition: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transition failed"})
	}
}
