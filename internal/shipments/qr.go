package shipments

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/haiminhngo/farmlink-backend/pkg/errors"
)

// QR payload prefixes printed on pickup and delivery labels.
const (
	qrOrderPrefix    = "ORDER_"
	qrShipmentPrefix = "SHIPMENT_"
)

// OrderQR and ShipmentQR render the canonical label payloads.
func OrderQR(orderID uuid.UUID) string {
	return qrOrderPrefix + orderID.String()
}

func ShipmentQR(shipmentID uuid.UUID) string {
	return qrShipmentPrefix + shipmentID.String()
}

// ValidateQR accepts exactly four payloads for a shipment: the prefixed
// order and shipment forms, and the bare id of either. Anything else,
// including codes minted for a different shipment, is rejected.
func ValidateQR(code string, orderID, shipmentID uuid.UUID) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidQRCode, "qr code is empty")
	}

	accepted := []string{
		OrderQR(orderID),
		ShipmentQR(shipmentID),
		orderID.String(),
		shipmentID.String(),
	}
	for _, want := range accepted {
		if strings.EqualFold(trimmed, want) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidQRCode, "qr code does not match this shipment")
}
