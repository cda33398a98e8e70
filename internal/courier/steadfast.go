package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"storefront/internal/service"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://portal.packzy.com/api/v1"

// Steadfast registers parcels with the Steadfast courier. Credentials are read from the
// settings provider on every call so admins can rotate them without a restart.
type Steadfast struct {
	httpClient *http.Client
	settings   service.SettingsProvider
	log        *zap.Logger
}

func NewSteadfast(settings service.SettingsProvider, timeout time.Duration, log *zap.Logger) *Steadfast {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Steadfast{
		settings: settings,
		log:      log,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
			},
		},
	}
}

type createOrderRequest struct {
	Invoice          string          `json:"invoice"`
	RecipientName    string          `json:"recipient_name"`
	RecipientPhone   string          `json:"recipient_phone"`
	RecipientAddress string          `json:"recipient_address"`
	CODAmount        json.Number     `json:"cod_amount"`
	Note             string          `json:"note,omitempty"`
}

type createOrderResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Consignment *struct {
		ConsignmentID json.Number `json:"consignment_id"`
		Invoice       string      `json:"invoice"`
		TrackingCode  string      `json:"tracking_code"`
		Status        string      `json:"status"`
	} `json:"consignment"`
}

type credentials struct {
	baseURL   string
	apiKey    string
	secretKey string
}

func (c *Steadfast) credentials(ctx context.Context) (credentials, error) {
	get := func(key string) (string, error) {
		v, err := c.settings.Get(ctx, key)
		if errors.Is(err, service.ErrSettingNotFound) {
			return "", nil
		}
		return strings.TrimSpace(v), err
	}
	var (
		cr  credentials
		err error
	)
	if cr.baseURL, err = get(service.SettingSteadfastBaseURL); err != nil {
		return cr, err
	}
	if cr.apiKey, err = get(service.SettingSteadfastAPIKey); err != nil {
		return cr, err
	}
	if cr.secretKey, err = get(service.SettingSteadfastSecretKey); err != nil {
		return cr, err
	}
	if cr.baseURL == "" {
		cr.baseURL = DefaultBaseURL
	}
	if cr.apiKey == "" || cr.secretKey == "" {
		return cr, fmt.Errorf("%w: steadfast credentials are not configured", service.ErrUpstream)
	}
	cr.baseURL = strings.TrimRight(cr.baseURL, "/")
	return cr, nil
}

// CreateParcel implements service.CourierGateway.
func (c *Steadfast) CreateParcel(ctx context.Context, p service.CourierParcel) (service.CourierReceipt, error) {
	cr, err := c.credentials(ctx)
	if err != nil {
		return service.CourierReceipt{}, err
	}

	body, err := json.Marshal(createOrderRequest{
		Invoice:          p.Invoice,
		RecipientName:    p.RecipientName,
		RecipientPhone:   p.RecipientPhone,
		RecipientAddress: p.RecipientAddress,
		CODAmount:        json.Number(p.CODAmount.StringFixed(2)),
		Note:             p.Note,
	})
	if err != nil {
		return service.CourierReceipt{}, fmt.Errorf("encode steadfast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cr.baseURL+"/create_order", bytes.NewReader(body))
	if err != nil {
		return service.CourierReceipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", cr.apiKey)
	req.Header.Set("Secret-Key", cr.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return service.CourierReceipt{}, fmt.Errorf("%w: call steadfast: %v", service.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return service.CourierReceipt{}, fmt.Errorf("%w: read steadfast response: %v", service.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("steadfast rejected parcel",
			zap.String("invoice", p.Invoice),
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return service.CourierReceipt{}, fmt.Errorf("%w: steadfast status %d", service.ErrUpstream, resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return service.CourierReceipt{}, fmt.Errorf("%w: decode steadfast response: %v", service.ErrUpstream, err)
	}
	if out.Status != 0 && out.Status != http.StatusOK {
		return service.CourierReceipt{}, fmt.Errorf("%w: steadfast: %s", service.ErrUpstream, out.Message)
	}
	if out.Consignment == nil || out.Consignment.TrackingCode == "" {
		return service.CourierReceipt{}, fmt.Errorf("%w: steadfast response has no consignment", service.ErrUpstream)
	}

	return service.CourierReceipt{
		ConsignmentID: out.Consignment.ConsignmentID.String(),
		TrackingCode:  out.Consignment.TrackingCode,
		Status:        out.Consignment.Status,
	}, nil
}
