// handlers/catalog.go
package handlers

import (
	"errors"
	"log"

	"referral-flow-bot/middleware"
	"referral-flow-bot/models"
	"referral-flow-bot/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler is the admin management surface for the bank → product →
// variant → offer hierarchy and the referral links. Upserts are idempotent,
// so a catalog import can simply be re-run.
type CatalogHandler struct {
	Catalog *services.CatalogService
	Links   *services.LinkService
}

func SetupCatalogRoutes(app *fiber.App, token string, h *CatalogHandler) {
	admin := app.Group("/catalog", middleware.AdminAuthMiddleware(token))

	admin.Get("/banks", h.ListBanks)
	admin.Post("/banks", h.UpsertBank)
	admin.Patch("/banks/:key/active", h.ToggleBank)

	admin.Get("/banks/:bank/products", h.ListProducts)
	admin.Post("/products", h.UpsertProduct)
	admin.Patch("/products/:bank/:key/active", h.ToggleProduct)

	admin.Get("/products/:bank/:product/variants", h.ListVariants)
	admin.Post("/variants", h.CreateVariant)
	admin.Put("/variants/:bank/:product/:key", h.UpdateVariant)
	admin.Patch("/variants/:bank/:product/:key/active", h.ToggleVariant)

	admin.Post("/offers", h.UpsertOffer)
	admin.Delete("/offers/:id", h.DeleteOffer)

	admin.Post("/links", h.UpsertLink)
}

// --- Banks ---

func (h *CatalogHandler) ListBanks(c *fiber.Ctx) error {
	banks, err := h.Catalog.AllBanks()
	if err != nil {
		log.Printf("DB error listing banks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load banks"})
	}
	return c.JSON(banks)
}

func (h *CatalogHandler) UpsertBank(c *fiber.Ctx) error {
	var req struct {
		BankKey   string `json:"bank_key"`
		BankName  string `json:"bank_name"`
		BankTitle string `json:"bank_title"`
		IsActive  bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.Catalog.UpsertBank(req.BankKey, req.BankName, req.BankTitle, req.IsActive); err != nil {
		return h.writeError(c, "bank upsert", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CatalogHandler) ToggleBank(c *fiber.Ctx) error {
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.Catalog.ToggleBank(c.Params("key"), req.IsActive); err != nil {
		return h.writeError(c, "bank toggle", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// --- Products ---

func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.Catalog.ProductsByBank(c.Params("bank"), true)
	if err != nil {
		log.Printf("DB error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load products"})
	}
	return c.JSON(products)
}

func (h *CatalogHandler) UpsertProduct(c *fiber.Ctx) error {
	var req struct {
		BankKey     string `json:"bank_key"`
		ProductKey  string `json:"product_key"`
		ProductName string `json:"product_name"`
		Description string `json:"description"`
		IsActive    bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.Catalog.UpsertProduct(req.BankKey, req.ProductKey, req.ProductName, req.Description, req.IsActive); err != nil {
		return h.writeError(c, "product upsert", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CatalogHandler) ToggleProduct(c *fiber.Ctx) error {
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.Catalog.ToggleProduct(c.Params("bank"), c.Params("key"), req.IsActive); err != nil {
		return h.writeError(c, "product toggle", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// --- Variants ---

func (h *CatalogHandler) ListVariants(c *fiber.Ctx) error {
	variants, err := h.Catalog.VariantsByProduct(c.Params("bank"), c.Params("product"), true)
	if err != nil {
		log.Printf("DB error listing variants: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load variants"})
	}
	return c.JSON(variants)
}

// CreateVariant generates the variant key from the title server-side and
// returns the created row so the admin sees the key that was assigned.
func (h *CatalogHandler) CreateVariant(c *fiber.Ctx) error {
	var req struct {
		BankKey     string `json:"bank_key"`
		ProductKey  string `json:"product_key"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	variant, err := h.Catalog.CreateVariant(req.BankKey, req.ProductKey, req.Title, req.Description)
	if err != nil {
		return h.writeError(c, "variant create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(variant)
}

func (h *CatalogHandler) UpdateVariant(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	err := h.Catalog.UpdateVariant(c.Params("bank"), c.Params("product"), c.Params("key"), req.Title, req.Description)
	if err != nil {
		return h.writeError(c, "variant update", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CatalogHandler) ToggleVariant(c *fiber.Ctx) error {
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	err := h.Catalog.ToggleVariant(c.Params("bank"), c.Params("product"), c.Params("key"), req.IsActive)
	if err != nil {
		return h.writeError(c, "variant toggle", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// --- Offers ---

func (h *CatalogHandler) UpsertOffer(c *fiber.Ctx) error {
	var req struct {
		BankKey    string `json:"bank_key"`
		ParentType string `json:"parent_type"`
		ParentKey  string `json:"parent_key"`
		Title      string `json:"title"`
		Conditions string `json:"conditions"`
		GrossBonus int64  `json:"gross_bonus"`
		IsActive   bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	err := h.Catalog.UpsertOffer(req.BankKey, models.OfferParentType(req.ParentType),
		req.ParentKey, req.Title, req.Conditions, req.GrossBonus, req.IsActive)
	if err != nil {
		return h.writeError(c, "offer upsert", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CatalogHandler) DeleteOffer(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid offer id"})
	}
	if err := h.Catalog.DeleteOffer(int64(id)); err != nil {
		return h.writeError(c, "offer delete", err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// --- Links ---

func (h *CatalogHandler) UpsertLink(c *fiber.Ctx) error {
	var req struct {
		BankKey     string  `json:"bank_key"`
		ProductKey  string  `json:"product_key"`
		VariantKey  *string `json:"variant_key"`
		BaseURL     string  `json:"base_url"`
		UTMSource   string  `json:"utm_source"`
		UTMMedium   string  `json:"utm_medium"`
		UTMCampaign string  `json:"utm_campaign"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	err := h.Links.UpsertLink(req.BankKey, req.ProductKey, req.VariantKey,
		req.BaseURL, req.UTMSource, req.UTMMedium, req.UTMCampaign)
	if err != nil {
		return h.writeError(c, "link upsert", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CatalogHandler) writeError(c *fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	default:
		log.Printf("DB error on %s: %v", op, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": op + " failed"})
	}
}
