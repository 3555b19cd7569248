package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "careerpulse/api/v1"
	"careerpulse/internal/config"
	"careerpulse/internal/http"
)

// publicCORSConfig is the permissive CORS setup shared by the public
// ingestion endpoints, which are called cross-origin from browser SDKs.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only applies in production; in development and test it
	// would interfere with batch-heavy local runs.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 70 req/min per IP on the public ingestion path. Batching keeps
	// legitimate SDK traffic well under this.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public ingestion config: CORS runs first so rejected requests still
	// carry CORS headers. Sec-Fetch-Site stays off; server-side SDKs send
	// no fetch metadata.
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		WriteConcurrency:   false,
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// Read-side API config: same-origin dashboard consumers, no CORS.
	internalAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC API ROUTES ===
	srv.Post("/x/api/v1/analytics/events", v1.CollectEventsBatchHandler, publicAPIConfig)
	srv.Options("/x/api/v1/analytics/events", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === DASHBOARD API ROUTES ===
	srv.Get("/api/v1/analytics/dashboard", http.DashboardShowAction, internalAPIConfig)
	srv.Get("/api/v1/analytics/users/:id", http.UserShowAction, internalAPIConfig)
}
