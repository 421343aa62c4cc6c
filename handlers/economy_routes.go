package handlers

import (
	"errors"
	"fmt"

	"economy-engine/middleware"
	"economy-engine/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps the service sentinels onto HTTP statuses. Anything
// unmapped is an infrastructure failure and comes back as a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrAlreadyOwned), errors.Is(err, services.ErrOrderClosed):
		return fiber.StatusConflict
	default:
		var gwErr *services.GatewayError
		if errors.As(err, &gwErr) {
			return fiber.StatusBadGateway
		}
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

// SetupEconomyRoutes wires wallet, progression and achievement endpoints.
func SetupEconomyRoutes(app *fiber.App, wallet *services.WalletService, progression *services.ProgressionService, achievements *services.AchievementService) {
	// User-context middleware is attached per route: the public catalog
	// endpoints share the "/" prefix, so a prefix-wide Use would catch them.
	userCtx := middleware.UserContextMiddleware()

	// Progression view: balances plus the derived level/rank.
	app.Get("/user/progression", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		view, err := progression.Overview(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	app.Get("/user/achievements", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		views, err := achievements.ListProgress(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(views)
	})

	// Project view event: one-shot XP per project plus the projectViews
	// counter. The reason key is what keeps a double-fired view at 5 XP
	// instead of 10.
	app.Post("/user/events/project-view", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ProjectID string `json:"project_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ProjectID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "project_id is required"})
		}

		credit, err := wallet.CreditXP(userID, 5, fmt.Sprintf("view_project_%s", req.ProjectID))
		if err != nil {
			return fail(c, err)
		}

		var unlockedCodes []string
		if credit.AmountApplied > 0 {
			unlocked, err := achievements.RecordEvent(userID, "projectViews", 1)
			if err != nil {
				return fail(c, err)
			}
			for _, def := range unlocked {
				unlockedCodes = append(unlockedCodes, def.Code)
			}
		}

		return c.JSON(fiber.Map{
			"xp_applied": credit.AmountApplied,
			"xp_total":   credit.NewTotal,
			"unlocked":   unlockedCodes,
		})
	})

	app.Post("/user/points/spend", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil || req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a positive integer"})
		}

		if err := wallet.SpendPoints(userID, req.Amount); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "points spent", "amount": req.Amount})
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware())

	// Provisioning shortcut for environments without the profile sync
	// service (local dev, integration tests). Idempotent.
	admin.Post("/users/ensure", func(c *fiber.Ctx) error {
		var req struct {
			UserID   string `json:"user_id"`
			Username string `json:"username"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}
		user, err := wallet.EnsureUser(req.UserID, req.Username)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(user)
	})

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Amount int64  `json:"amount"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		credit, err := wallet.CreditXP(req.UserID, req.Amount, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(credit)
	})

	admin.Post("/runes/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Amount int64  `json:"amount"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		credit, err := wallet.CreditRunes(req.UserID, req.Amount, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(credit)
	})

	admin.Post("/achievements/trigger", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Code   string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		def, err := achievements.TriggerSpecial(req.UserID, req.Code)
		if err != nil {
			return fail(c, err)
		}
		if def == nil {
			return c.JSON(fiber.Map{"message": "already unlocked"})
		}
		return c.JSON(fiber.Map{"message": "unlocked", "achievement": def})
	})
}
