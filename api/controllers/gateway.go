package controllers

import (
	"net/http"
	"time"

	"github.com/haiminhngo/farmlink-backend/api/responses"
	"github.com/haiminhngo/farmlink-backend/internal/payments"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
	"github.com/haiminhngo/farmlink-backend/pkg/metrics"
)

const (
	channelReturn = "return"
	channelIPN    = "ipn"
)

// GatewayReturn handles the browser redirect back from the payment gateway.
// It always answers 200 with a terminal status so the client can render an
// outcome page. Settlement authority lies with the IPN path.
func GatewayReturn(svc payments.Service, cb *metrics.GatewayCallbackMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		result := svc.HandleReturn(r.Context(), flattenQuery(r))
		cb.ObserveDuration(channelReturn, time.Since(start))
		cb.IncOutcome(channelReturn, result.Status)

		responses.WriteSuccess(w, result)
	}
}

// GatewayIPN handles the server-to-server notification. The gateway retries
// until it receives RspCode 00 or a terminal code, so the ack is always 200
// with the structured body, never an HTTP error.
func GatewayIPN(svc payments.Service, cb *metrics.GatewayCallbackMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ack := svc.HandleNotification(r.Context(), flattenQuery(r))
		cb.ObserveDuration(channelIPN, time.Since(start))
		cb.IncOutcome(channelIPN, ack.RspCode)

		responses.WriteRaw(w, http.StatusOK, ack)
	}
}

func flattenQuery(r *http.Request) map[string]string {
	params := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}
