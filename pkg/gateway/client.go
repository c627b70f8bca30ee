package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/haiminhngo/farmlink-backend/pkg/config"
)

const (
	versionValue = "2.1.0"
	commandValue = "pay"
	currencyCode = "VND"

	// Gateway goods-category code. Everything the platform sells goes
	// through as the generic category.
	orderTypeValue = "other"

	dateLayout = "20060102150405"
)

// Gateway response codes the platform understands.
const (
	RespCodeSuccess       = "00"
	RespCodeUserCancelled = "24"
)

// Ack codes returned to the gateway from the IPN endpoint.
const (
	AckSuccess          = "00"
	AckTxnRefNotFound   = "01"
	AckAlreadyConfirmed = "02"
	AckAmountMismatch   = "04"
	AckInvalidSignature = "97"
	AckUnknownError     = "99"
)

// PaymentURLRequest carries everything needed to build a redirect URL.
type PaymentURLRequest struct {
	TxnRef    string
	AmountVND int64
	OrderInfo string
	ClientIP  string
	CreatedAt time.Time
}

// Client signs payment URL requests and verifies callback signatures.
type Client struct {
	cfg config.GatewayConfig
	loc *time.Location
}

// NewClient validates the gateway config and loads the gateway timezone.
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	if strings.TrimSpace(cfg.PayURL) == "" {
		return nil, errors.New("gateway pay url is required")
	}
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return nil, errors.New("gateway tmn code is required")
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return nil, errors.New("gateway hash secret is required")
	}
	if strings.TrimSpace(cfg.ReturnURL) == "" {
		return nil, errors.New("gateway return url is required")
	}
	if cfg.RequestExpiry <= 0 {
		return nil, errors.New("gateway request expiry must be positive")
	}

	// The gateway expects timestamps in Vietnam local time.
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return nil, fmt.Errorf("loading gateway timezone: %w", err)
	}
	return &Client{cfg: cfg, loc: loc}, nil
}

// BuildPaymentURL assembles the signed redirect URL for a payment attempt.
// Amounts are multiplied by 100 per the gateway wire format.
func (c *Client) BuildPaymentURL(req PaymentURLRequest) (string, error) {
	if strings.TrimSpace(req.TxnRef) == "" {
		return "", errors.New("txn ref is required")
	}
	if req.AmountVND <= 0 {
		return "", errors.New("amount must be positive")
	}
	if strings.TrimSpace(req.OrderInfo) == "" {
		return "", errors.New("order info is required")
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.In(c.loc)
	expiresAt := createdAt.Add(c.cfg.RequestExpiry)

	clientIP := strings.TrimSpace(req.ClientIP)
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	params := map[string]string{
		"version":    versionValue,
		"command":    commandValue,
		"tmnCode":    c.cfg.TmnCode,
		"amount":     strconv.FormatInt(req.AmountVND*100, 10),
		"currCode":   currencyCode,
		"txnRef":     req.TxnRef,
		"orderInfo":  req.OrderInfo,
		"orderType":  orderTypeValue,
		"locale":     c.cfg.Locale,
		"returnUrl":  c.cfg.ReturnURL,
		"ipAddr":     clientIP,
		"createDate": createdAt.Format(dateLayout),
		"expireDate": expiresAt.Format(dateLayout),
	}

	signature := Sign(c.cfg.HashSecret, params)

	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var query strings.Builder
	for i, key := range keys {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(key))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(params[key]))
	}
	query.WriteByte('&')
	query.WriteString(SecureHashParam)
	query.WriteByte('=')
	query.WriteString(signature)

	return c.cfg.PayURL + "?" + query.String(), nil
}

// VerifyCallback checks the signature over callback params. The params map
// should contain the raw query values including the secureHash entry.
func (c *Client) VerifyCallback(params map[string]string) bool {
	return Verify(c.cfg.HashSecret, params, params[SecureHashParam])
}

// ParseCallbackAmount converts the gateway's x100 minor-unit amount back to VND.
func ParseCallbackAmount(raw string) (int64, error) {
	minor, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if minor < 0 || minor%100 != 0 {
		return 0, fmt.Errorf("invalid amount %q: not a x100 value", raw)
	}
	return minor / 100, nil
}
