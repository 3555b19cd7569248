package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"careerpulse/internal/config"
	"careerpulse/internal/events"
)

const errInvalidRequestBody = "Invalid request body"

type batchEnvelope struct {
	Events []events.RawEvent `json:"events"`
}

// CollectEventsBatchHandler ingests a batch of analytics events. The body is
// either a bare JSON array of events or an object wrapping the array under
// an "events" key. Invalid events inside a well-formed batch are dropped
// silently; processed_count reports only what was stored.
func CollectEventsBatchHandler(ctx *cartridge.Context) error {
	ctx.Logger.Debug("Received analytics batch",
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.Path()),
		slog.String("ip", getClientIP(ctx.Ctx)))

	batch, err := decodeBatch(ctx.Body())
	if err != nil {
		ctx.Logger.Debug("Rejected malformed batch", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   errInvalidRequestBody,
		})
	}

	cfg := config.GetConfig()
	if len(batch) > cfg.MaxBatchSize {
		ctx.Logger.Warn("Rejected oversized batch",
			slog.Int("size", len(batch)),
			slog.Int("limit", cfg.MaxBatchSize))
		return ctx.Status(http.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"success": false,
			"error":   fmt.Sprintf("Batch exceeds limit of %d events", cfg.MaxBatchSize),
		})
	}

	// A batch that cannot commit within the timeout fails whole; the
	// transaction rolls back so no partial effects persist.
	batchCtx, cancel := context.WithTimeout(ctx.Ctx.Context(), time.Duration(cfg.GetBatchTimeout())*time.Second)
	defer cancel()

	result, err := events.ProcessBatch(batchCtx, ctx.DBManager, ctx.Logger, batch)
	if err != nil {
		ctx.Logger.Error("Failed to process analytics batch", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success":         false,
			"error":           "Failed to process events",
			"processed_count": 0,
		})
	}

	return ctx.JSON(fiber.Map{
		"success":         true,
		"processed_count": result.Accepted,
		"message":         fmt.Sprintf("Successfully processed %d events", result.Accepted),
	})
}

// decodeBatch accepts both supported body shapes.
func decodeBatch(body []byte) ([]events.RawEvent, error) {
	var batch []events.RawEvent
	if err := json.Unmarshal(body, &batch); err == nil {
		return batch, nil
	}

	var envelope batchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("body is neither an event array nor an events envelope: %w", err)
	}
	if envelope.Events == nil {
		return nil, fmt.Errorf("events envelope missing events array")
	}
	return envelope.Events, nil
}
