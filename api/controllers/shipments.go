package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/api/middleware"
	"github.com/haiminhngo/farmlink-backend/api/responses"
	"github.com/haiminhngo/farmlink-backend/api/validators"
	"github.com/haiminhngo/farmlink-backend/internal/shipments"
	"github.com/haiminhngo/farmlink-backend/pkg/enums"
	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
	"github.com/haiminhngo/farmlink-backend/pkg/logger"
)

type createShipmentRequest struct {
	OrderID         string  `json:"order_id" validate:"required,uuid"`
	DriverID        *string `json:"driver_id,omitempty"`
	VehicleInfo     *string `json:"vehicle_info,omitempty"`
	PickupAddress   *string `json:"pickup_address,omitempty"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
}

type confirmPickupRequest struct {
	QRCode   string  `json:"qr_code" validate:"required"`
	Location *string `json:"location,omitempty"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}

type confirmShipmentDeliveryRequest struct {
	QRCode           string  `json:"qr_code" validate:"required"`
	DeliveryImageURL string  `json:"delivery_image_url" validate:"omitempty,url"`
	Location         *string `json:"location,omitempty"`
}

type updateShipmentStatusRequest struct {
	Status        string  `json:"status" validate:"required"`
	Location      *string `json:"location,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

type updateLocationRequest struct {
	Location string `json:"location" validate:"required"`
}

func ShipmentCreate(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createShipmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		input := shipments.CreateShipmentInput{
			OrderID:         orderID,
			VehicleInfo:     req.VehicleInfo,
			PickupAddress:   req.PickupAddress,
			DeliveryAddress: req.DeliveryAddress,
			ActorUserID:     userID,
			ActorRole:       role,
		}
		if req.DriverID != nil {
			driverID, err := uuid.Parse(*req.DriverID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver id"))
				return
			}
			input.DriverID = &driverID
		}

		shipment, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

func ShipmentDetail(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipmentID, err := parseShipmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Get(r.Context(), shipments.GetShipmentInput{
			ShipmentID:  shipmentID,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ShipmentAssignDriver(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipmentID, err := parseShipmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req assignDriverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := uuid.Parse(req.DriverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver id"))
			return
		}

		shipment, err := svc.AssignDriver(r.Context(), shipments.AssignDriverInput{
			ShipmentID:  shipmentID,
			DriverID:    driverID,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ShipmentConfirmPickup(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipmentID, err := parseShipmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req confirmPickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.ConfirmPickup(r.Context(), shipments.ConfirmPickupInput{
			ShipmentID:  shipmentID,
			QRCode:      req.QRCode,
			Location:    req.Location,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ShipmentConfirmDelivery(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipmentID, err := parseShipmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req confirmShipmentDeliveryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.ConfirmDelivery(r.Context(), shipments.ConfirmDeliveryInput{
			ShipmentID:       shipmentID,
			QRCode:           req.QRCode,
			Location:         req.Location,
			DeliveryImageURL: req.DeliveryImageURL,
			ActorUserID:      userID,
			ActorRole:        role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ShipmentUpdateStatus(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipmentID, err := parseShipmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateShipmentStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target := enums.ShipmentStatus(req.Status)
		if !target.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment status"))
			return
		}

		shipment, err := svc.UpdateStatus(r.Context(), shipments.UpdateStatusInput{
			ShipmentID:    shipmentID,
			Target:        target,
			Location:      req.Location,
			FailureReason: req.FailureReason,
			ActorUserID:   userID,
			ActorRole:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ShipmentUpdateLocation(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipmentID, err := parseShipmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.UpdateLocation(r.Context(), shipments.UpdateLocationInput{
			ShipmentID:  shipmentID,
			Location:    req.Location,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func parseShipmentID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "shipmentId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}
	shipmentID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipment id")
	}
	return shipmentID, nil
}
