package http

import (
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"careerpulse/internal/analytics"
	"careerpulse/internal/timeframe"
)

// DashboardShowAction serves the aggregated dashboard for the requested
// time range. The range defaults to the last 7 days; unknown values fall
// back to all time.
func DashboardShowAction(ctx *cartridge.Context) error {
	tf := timeframe.Parse(ctx.Query("range", ""), time.Now())

	data, err := analytics.GetDashboard(ctx.Ctx.Context(), ctx.DB(), ctx.Logger, tf)
	if err != nil {
		ctx.Logger.Error("Failed to build dashboard",
			slog.String("range", string(tf.Label)),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load dashboard",
		})
	}

	return ctx.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"time_range": string(tf.Label),
	})
}
