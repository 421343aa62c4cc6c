package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"economy-engine/handlers"
	"economy-engine/middleware"
	"economy-engine/models"
	"economy-engine/services"
	"economy-engine/utils"
	"economy-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // uploads are profile backgrounds, nothing bigger
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns unique-constraint violations into
	// gorm.ErrDuplicatedKey, which the idempotency paths rely on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.AppliedReward{},
		&models.ShopItem{},
		&models.UserInventory{},
		&models.AchievementDefinition{},
		&models.UserAchievementProgress{},
		&models.DigitalProduct{},
		&models.Order{},
		&models.DigitalProductOwnership{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SyncStaticCatalogs(db); err != nil {
		log.Fatal("failed to sync static catalogs:", err)
	}

	walletService := services.NewWalletService(db)
	progressionService := services.NewProgressionService(db)
	achievementService := services.NewAchievementService(db, walletService)
	inventoryService := services.NewInventoryService(db, walletService)
	checkoutService := services.NewCheckoutService(db, achievementService,
		services.NewMollieGateway(),
		services.NewPayPalGateway(),
	)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	userSyncWorker := workers.NewUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", os.Getenv("ECONOMY_SERVICE_TOKEN"))

	handlers.SetupEconomyRoutes(app, walletService, progressionService, achievementService)
	handlers.SetupShopRoutes(app, inventoryService, achievementService)
	handlers.SetupCheckoutRoutes(app, checkoutService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userSyncWorker.Start(ctx)
	workers.StartOrderReconciler(db, checkoutService)

	go func() {
		if err := app.Listen(":5200"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5200")
	log.Println("✅ Order reconciler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
