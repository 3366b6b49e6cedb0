package v1

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/levisbarua/pesaflow-1/internal/api/middleware"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/observer"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	eventUpdate = "update"
	eventResult = "result"

	keepAliveInterval = 15 * time.Second
)

type watchOutcome struct {
	result observer.Result
	err    error
}

// WatchTransaction streams the transaction as server-sent events: one "update"
// per observed change, then a single "result" carrying the outcome.
func (h *Handler) WatchTransaction(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	id := strings.Clone(c.Params("id"))

	// Ownership is checked before the stream opens so errors keep their status.
	if _, err := h.queries.GetTransaction(c.UserContext(), userID, id); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		h.stream(w, id)
	}))

	return nil
}

func (h *Handler) stream(w *bufio.Writer, id string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan model.Transaction)
	done := make(chan watchOutcome, 1)

	go func() {
		result, err := h.watcher.Watch(ctx, id, func(txn model.Transaction) {
			select {
			case updates <- txn:
			case <-ctx.Done():
			}
		})
		done <- watchOutcome{result: result, err: err}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case txn := <-updates:
			if err := writeEvent(w, eventUpdate, WatchEvent{Transaction: &txn}); err != nil {
				h.logger.Debug("Watch client went away", zap.String("transaction_id", id), zap.Error(err))
				return
			}

		case outcome := <-done:
			if outcome.err != nil {
				h.logger.Error("Watch ended with error", zap.String("transaction_id", id), zap.Error(outcome.err))
				_ = writeEvent(w, eventResult, WatchEvent{Outcome: observer.OutcomeCancelled, Message: outcome.err.Error()})
				return
			}

			result := outcome.result
			_ = writeEvent(w, eventResult, WatchEvent{
				Transaction: &result.Transaction,
				Outcome:     result.Outcome,
				Message:     result.Message,
			})
			return

		case <-keepAlive.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, name string, payload WatchEvent) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}

	return w.Flush()
}
