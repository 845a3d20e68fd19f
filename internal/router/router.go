package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework handles routing

    "github.com/evently/ticketing/internal/handler"
    "github.com/evently/ticketing/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
// Currently it exposes only a health check, used by load balancers and
// monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterEvents wires the public browse endpoints and the admin-only
// mutation endpoints.  Admin routes verify a bearer token issued by the
// auth service and require the ADMIN role claim.  Public GETs sit behind
// the Redis response cache when one is configured.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, cache echo.MiddlewareFunc) {
    public := e.Group("/v1")
    if cache != nil {
        public.Use(cache)
    }
    public.GET("/events", h.ListEvents)
    public.GET("/events/:id", h.GetEvent)

    admin := e.Group("/v1/events")
    admin.Use(middleware.JWTAuth(jwtSecret))
    admin.Use(middleware.RequireRole("ADMIN"))
    admin.POST("", h.CreateEvent)
    admin.PUT("/:id", h.UpdateEvent)
    admin.DELETE("/:id", h.DeleteEvent)
}

// RegisterInventory wires the seat inventory boundary.  The availability
// query is public (display only, cacheable); reserve and release live
// under /internal and are restricted to the booking service via its
// service key, with the token-bucket limiter absorbing retry bursts.
func RegisterInventory(e *echo.Echo, h *handler.InventoryHandler, serviceKeyHash string, ratelimit, cache echo.MiddlewareFunc) {
    avail := e.Group("/v1")
    if cache != nil {
        avail.Use(cache)
    }
    avail.GET("/events/:id/availability", h.GetAvailability)

    internal := e.Group("/internal/v1/events/:id")
    internal.Use(middleware.RequireServiceKey(serviceKeyHash))
    if ratelimit != nil {
        internal.Use(ratelimit)
    }
    internal.POST("/reserve", h.Reserve)
    internal.POST("/release", h.Release)
}
