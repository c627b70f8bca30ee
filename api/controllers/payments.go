package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/api/middleware"
	"github.com/haiminhngo/farmlink-backend/api/responses"
	"github.com/haiminhngo/farmlink-backend/api/validators"
	"github.com/haiminhngo/farmlink-backend/internal/payments"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
)

type requestPaymentRequest struct {
	Type              string  `json:"type" validate:"required,oneof=order_deposit order_full subscription"`
	OrderID           *string `json:"order_id,omitempty"`
	SubscriptionID    *string `json:"subscription_id,omitempty"`
	ExpectedAmountVND *int64  `json:"expected_amount_vnd,omitempty"`
}

func PaymentRequest(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req requestPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payments.RequestPaymentInput{
			Type:              enums.PaymentType(req.Type),
			ExpectedAmountVND: req.ExpectedAmountVND,
			ClientIP:          clientIP(r),
			ActorUserID:       userID,
			ActorRole:         role,
		}
		if req.OrderID != nil {
			orderID, err := uuid.Parse(*req.OrderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
				return
			}
			input.OrderID = &orderID
		}
		if req.SubscriptionID != nil {
			subscriptionID, err := uuid.Parse(*req.SubscriptionID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription id"))
				return
			}
			input.SubscriptionID = &subscriptionID
		}

		result, err := svc.Request(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func PaymentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnRef := strings.TrimSpace(chi.URLParam(r, "txnRef"))
		if txnRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required"))
			return
		}

		payment, err := svc.Get(r.Context(), payments.GetPaymentInput{
			TxnRef:      txnRef,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
