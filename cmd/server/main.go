package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // Loads .env files during development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/evently/ticketing/internal/config"
    "github.com/evently/ticketing/internal/database"
    "github.com/evently/ticketing/internal/handler"
    "github.com/evently/ticketing/internal/inventory"
    "github.com/evently/ticketing/internal/middleware"
    "github.com/evently/ticketing/internal/queue"
    "github.com/evently/ticketing/internal/repository"
    "github.com/evently/ticketing/internal/router"
)

func main() {
    // Load .env when present; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }

    // Redis is optional; middleware degrades to pass-through when nil.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and response cache disabled")
    }
    ratelimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    eventRepo := repository.NewEventRepo(db)
    inventoryRepo := repository.NewInventoryRepo(db)
    coordinator := inventory.NewCoordinator(inventoryRepo)

    eventHandler := handler.NewEventHandler(eventRepo, inventoryRepo)
    inventoryHandler := handler.NewInventoryHandler(coordinator)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterEvents(e, eventHandler, cfg.JWTSecret, cache)
    router.RegisterInventory(e, inventoryHandler, cfg.ServiceKeyHash, ratelimit, cache)

    // Audit consumer runs for the lifetime of the process and reconnects
    // on its own; it never returns under normal operation.
    go func() {
        if err := queue.StartInventoryConsumer(); err != nil {
            log.Printf("inventory consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
