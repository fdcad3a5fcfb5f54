package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/jolie-croquette/ludov-reservation/internal/config"
    "github.com/jolie-croquette/ludov-reservation/internal/handler"
    "github.com/jolie-croquette/ludov-reservation/internal/middleware"
)

// RegisterRoutes registers routes that need no booking wiring on the
// provided Echo instance.  Currently it exposes only a health check,
// which load balancers and monitoring systems can use to verify that
// the service is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterBooking mounts the booking API under /v1.  Every endpoint is
// rate limited through the Redis token bucket; the read-only
// availability check additionally goes through the response cache.
// When no Redis client is available both middlewares degrade to
// pass-through.
func RegisterBooking(e *echo.Echo, holds *handler.HoldHandler, reservations *handler.ReservationHandler, availability *handler.AvailabilityHandler, rdb *redis.Client) {
    g := e.Group("/v1")
    g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    cached := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    g.GET("/availability", availability.Check, cached)

    g.POST("/holds", holds.Create)
    g.POST("/holds/:id/renew", holds.Renew)
    g.DELETE("/holds/:id", holds.Cancel)
    g.POST("/holds/:id/promote", reservations.Promote)

    g.GET("/reservations/conflicts", availability.Conflicts)
    g.GET("/reservations/:id", reservations.Get)
    g.POST("/reservations/:id/archive", reservations.Archive)
}
