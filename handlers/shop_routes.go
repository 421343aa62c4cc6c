package handlers

import (
	"fmt"
	"path/filepath"

	"economy-engine/middleware"
	"economy-engine/models"
	"economy-engine/services"
	"economy-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupShopRoutes wires the item catalog, purchases and equip state.
func SetupShopRoutes(app *fiber.App, inventory *services.InventoryService, achievements *services.AchievementService) {
	app.Get("/shop/items", func(c *fiber.Ctx) error {
		var items []models.ShopItem
		query := inventory.DB.Order("category, price")
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}
		if err := query.Find(&items).Error; err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	userCtx := middleware.UserContextMiddleware()

	app.Get("/user/inventory", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		views, err := inventory.ListInventory(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(views)
	})

	app.Post("/shop/items/:id/purchase", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		itemID := c.Params("id")
		if _, err := uuid.Parse(itemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item ID"})
		}

		record, err := inventory.Purchase(userID, itemID)
		if err != nil {
			return fail(c, err)
		}

		// Purchase counters feed the collector-style achievements.
		unlocked, err := achievements.RecordEvent(userID, "shopPurchases", 1)
		if err != nil {
			return fail(c, err)
		}
		codes := make([]string, 0, len(unlocked))
		for _, def := range unlocked {
			codes = append(codes, def.Code)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"inventory": record,
			"unlocked":  codes,
		})
	})

	app.Post("/user/equip/:itemId", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		itemID := c.Params("itemId")
		if _, err := uuid.Parse(itemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item ID"})
		}

		user, err := inventory.ToggleEquip(userID, itemID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"equipped_frame":      user.EquippedFrame,
			"equipped_background": user.EquippedBackground,
			"profile_color":       user.ProfileColor,
		})
	})

	app.Put("/user/profile-color", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Color string `json:"color"`
		}
		if err := c.BodyParser(&req); err != nil || req.Color == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "color is required"})
		}

		user, err := inventory.SetProfileColor(userID, req.Color)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"profile_color":       user.ProfileColor,
			"equipped_background": user.EquippedBackground,
		})
	})

	// Custom background image upload. The file goes to R2; the stored URL
	// is what the "custom-image" shop item resolves to when equipped.
	app.Post("/user/background", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
		}

		key := fmt.Sprintf("backgrounds/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed", "cause": err.Error()})
		}

		if err := inventory.SetCustomBackgroundURL(userID, url); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"custom_background_url": url})
	})
}
