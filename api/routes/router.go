package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haiminhngo/farmlink-backend/api/controllers"
	"github.com/haiminhngo/farmlink-backend/api/middleware"
	"github.com/haiminhngo/farmlink-backend/internal/notifications"
	"github.com/haiminhngo/farmlink-backend/internal/orders"
	"github.com/haiminhngo/farmlink-backend/internal/payments"
	"github.com/haiminhngo/farmlink-backend/internal/shipments"
	"github.com/haiminhngo/farmlink-backend/pkg/config"
	"github.com/haiminhngo/farmlink-backend/pkg/db"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/metrics"
	"github.com/haiminhngo/farmlink-backend/pkg/redis"
)

type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        db.Pinger
	RedisPinger     redis.Pinger
	Orders          orders.Service
	Payments        payments.Service
	Shipments       shipments.Service
	Notifications   notifications.Service
	CallbackMetrics *metrics.GatewayCallbackMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisPinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Gateway callbacks are unauthenticated: the gateway signs its params
	// and the handlers verify the signature themselves.
	r.Route("/api/v1/payments/gateway", func(r chi.Router) {
		r.Get("/return", controllers.GatewayReturn(p.Payments, p.CallbackMetrics, logg))
		r.Get("/ipn", controllers.GatewayIPN(p.Payments, p.CallbackMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.UserRoleRetailer)).
				Post("/", controllers.OrderCreate(p.Orders, logg))
			r.Get("/", controllers.OrderList(p.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleRetailer)).
				Post("/{orderId}/cancel", controllers.OrderCancel(p.Orders, logg))
			r.Post("/{orderId}/status", controllers.OrderUpdateStatus(p.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleRetailer)).
				Post("/{orderId}/confirm-delivery", controllers.OrderConfirmDelivery(p.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentRequest(p.Payments, logg))
			r.Get("/{txnRef}", controllers.PaymentDetail(p.Payments, logg))
		})

		r.Route("/shipments", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.UserRoleFarmOwner, enums.UserRoleShippingManager)).
				Post("/", controllers.ShipmentCreate(p.Shipments, logg))
			r.Get("/{shipmentId}", controllers.ShipmentDetail(p.Shipments, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleFarmOwner, enums.UserRoleShippingManager)).
				Post("/{shipmentId}/assign", controllers.ShipmentAssignDriver(p.Shipments, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleDriver)).
				Post("/{shipmentId}/pickup", controllers.ShipmentConfirmPickup(p.Shipments, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleDriver)).
				Post("/{shipmentId}/deliver", controllers.ShipmentConfirmDelivery(p.Shipments, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleShippingManager, enums.UserRoleDriver)).
				Post("/{shipmentId}/status", controllers.ShipmentUpdateStatus(p.Shipments, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleDriver)).
				Post("/{shipmentId}/location", controllers.ShipmentUpdateLocation(p.Shipments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(p.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(p.Notifications, logg))
		})
	})

	return r
}
