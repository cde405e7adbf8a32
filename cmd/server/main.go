package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/example/unimart/internal/config"
	"github.com/example/unimart/internal/database"
	"github.com/example/unimart/internal/routes"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.DatabaseName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer func() { _ = db.Close(ctx) }()

	if err := db.CreateIndexes(ctx); err != nil {
		log.Fatalf("index creation failed: %v", err)
	}

	sessions := session.New(session.Config{
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Production(),
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		Expiration:     30 * 24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	})

	app := fiber.New(fiber.Config{
		AppName: "UniMart Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	if err := routes.Register(app, db, sessions, cfg); err != nil {
		log.Fatalf("route registration failed: %v", err)
	}

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
