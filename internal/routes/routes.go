package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/example/unimart/internal/config"
	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/database"
	"github.com/example/unimart/internal/handlers"
	"github.com/example/unimart/internal/hub"
	"github.com/example/unimart/internal/matching"
	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *database.Client, sessions *session.Store, cfg *config.Config) error {
	users := data.NewUsersStore(db.Users())
	products := data.NewProductsStore(db.Products())
	orders := data.NewOrdersStore(db.Orders())
	messages := data.NewMessagesStore(db.Messages())

	engine := matching.NewEngine(orders, products)
	connHub := hub.New()

	mail := services.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	storage, err := services.NewStorageService(cfg.StorageCloudName, cfg.StorageAPIKey, cfg.StorageAPISecret)
	if err != nil {
		return err
	}

	authHandler := handlers.NewAuthHandler(users, mail, storage, sessions, cfg)
	socialHandler := handlers.NewSocialHandler(users, authHandler, sessions, cfg)
	profileHandler := handlers.NewProfileHandler(users, storage)
	productHandler := handlers.NewProductHandler(products, users, engine, storage)
	orderHandler := handlers.NewOrderHandler(orders)
	dashboardHandler := handlers.NewDashboardHandler(products, orders, engine)
	chatHandler := handlers.NewChatHandler(messages, connHub)

	// Identity resolution runs on everything; handlers that need it
	// enforce it via Protect.
	app.Use(middleware.LoadUser(cfg, sessions, users))

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/verify", authHandler.Verify)
	auth.Post("/resend", authHandler.Resend)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/:provider", socialHandler.Redirect)
	auth.Get("/:provider/callback", socialHandler.Callback)
	auth.Post("/complete-profile", middleware.Protect(), authHandler.CompleteProfile)

	// Marketplace listings
	productsGroup := api.Group("/products")
	productsGroup.Get("/", productHandler.ListProducts)
	productsGroup.Post("/", middleware.Protect(), productHandler.CreateProduct)
	productsGroup.Get("/:id", productHandler.GetProduct)
	productsGroup.Post("/:id/delete", middleware.Protect(), productHandler.DeleteProduct)

	// Limit orders
	ordersGroup := api.Group("/orders", middleware.Protect())
	ordersGroup.Post("/", orderHandler.CreateOrder)
	ordersGroup.Post("/:id/delete", orderHandler.DeleteOrder)

	// Protected views
	protected := api.Group("", middleware.Protect())
	protected.Get("/dashboard", dashboardHandler.Dashboard)
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile/avatar", profileHandler.UpdateAvatar)
	protected.Delete("/profile/avatar", profileHandler.RemoveAvatar)
	protected.Get("/chat/:userId/messages", chatHandler.Conversation)

	// Realtime relay
	app.Use("/ws", chatHandler.UpgradeGate)
	app.Get("/ws", chatHandler.Websocket())

	return nil
}
