package handlers

import (
	"economy-engine/middleware"
	"economy-engine/models"
	"economy-engine/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupCheckoutRoutes wires the paid-product surface: catalog, checkout
// initiation, provider confirmation and order queries.
func SetupCheckoutRoutes(app *fiber.App, checkout *services.CheckoutService) {
	app.Get("/products", func(c *fiber.Ctx) error {
		var products []models.DigitalProduct
		if err := checkout.DB.Where("is_published = ?", true).Order("price").Find(&products).Error; err != nil {
			return fail(c, err)
		}
		return c.JSON(products)
	})

	// Provider webhook / success-page reconciliation. Deliberately outside
	// the user-context group: the confirmation is keyed by order id alone,
	// verified against the provider, and safe to replay.
	app.Post("/checkout/confirm/:orderId", func(c *fiber.Ctx) error {
		orderID := c.Params("orderId")
		if _, err := uuid.Parse(orderID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order ID"})
		}

		order, err := checkout.ConfirmFulfillment(c.Context(), orderID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"order_id": order.ID, "status": order.Status})
	})

	userCtx := middleware.UserContextMiddleware()

	app.Post("/checkout", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ProductID string `json:"product_id"`
			Provider  string `json:"provider"`
		}
		if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id is required"})
		}
		if req.Provider == "" {
			req.Provider = models.ProviderMollie
		}

		order, err := checkout.InitiateCheckout(c.Context(), userID, req.ProductID, req.Provider)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order_id":     order.ID,
			"status":       order.Status,
			"checkout_url": order.CheckoutURL,
		})
	})

	app.Get("/user/orders", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		orders, err := checkout.ListOrders(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(orders)
	})

	app.Post("/user/orders/:id/cancel", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		orderID := c.Params("id")
		if _, err := uuid.Parse(orderID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order ID"})
		}

		order, err := checkout.CancelOrder(userID, orderID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"order_id": order.ID, "status": order.Status})
	})

	app.Get("/user/ownerships", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var rows []models.DigitalProductOwnership
		if err := checkout.DB.Where("external_user_id = ?", userID).
			Order("granted_at DESC").Find(&rows).Error; err != nil {
			return fail(c, err)
		}
		return c.JSON(rows)
	})
}
