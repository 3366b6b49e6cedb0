package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	v1 "github.com/levisbarua/pesaflow-1/internal/api/v1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefixV1 = "/api/v1"

// SetupRoutes mounts the public routes first; everything under the identity
// group requires a resolved user.
func SetupRoutes(app *fiber.App, handler *v1.Handler, identity fiber.Handler, gatherer prometheus.Gatherer) {
	app.Get("/ping", handler.Pong)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.Post(prefixV1+"/mpesa/callback", handler.MpesaCallback)

	user := app.Group(prefixV1, identity)
	user.Post("/deposits", handler.InitiateDeposit)
	user.Post("/withdrawals", handler.InitiateWithdrawal)
	user.Get("/transactions", handler.ListTransactions)
	user.Get("/transactions/:id", handler.GetTransaction)
	user.Get("/transactions/:id/watch", handler.WatchTransaction)
	user.Get("/balance", handler.GetBalance)
	user.Get("/notifications", handler.ListNotifications)
	user.Post("/notifications/read-all", handler.MarkAllNotificationsRead)
	user.Post("/notifications/:id/read", handler.MarkNotificationRead)
}
