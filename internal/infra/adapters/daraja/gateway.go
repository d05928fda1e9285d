// File: internal/infra/adapters/daraja/gateway.go
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/infra/metrics"
)

var _ adapter.PushGateway = (*Gateway)(nil)

// GatewayError carries the provider's raw error payload for diagnostics.
// Buyers never see it; it is for logs only.
type GatewayError struct {
	Op      string
	Status  int
	Payload string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("daraja %s failed: http %d: %s", e.Op, e.Status, e.Payload)
}

// Gateway implements adapter.PushGateway against the Daraja STK-push API.
type Gateway struct {
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	sandbox        bool
	baseOverride   string
	client         *http.Client
	now            func() time.Time // injectable for tests
}

type Config struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	Shortcode      string `yaml:"shortcode"`
	Passkey        string `yaml:"passkey"`
	CallbackURL    string `yaml:"callback_url"`
	Environment    string `yaml:"environment"` // sandbox | production
	BaseURL        string `yaml:"base_url"`    // override, used by tests
}

func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("daraja: consumer credentials required: %w", domain.ErrInvalidArgument)
	}
	if cfg.Shortcode == "" || cfg.Passkey == "" {
		return nil, fmt.Errorf("daraja: shortcode and passkey required: %w", domain.ErrInvalidArgument)
	}
	g := &Gateway{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
		sandbox:        cfg.Environment != "production",
		client:         &http.Client{Timeout: 15 * time.Second},
		now:            time.Now,
	}
	if cfg.BaseURL != "" {
		g.baseOverride = cfg.BaseURL
	}
	return g, nil
}

func (g *Gateway) Name() string { return "daraja" }

func (g *Gateway) endpoint(path string) string {
	if g.baseOverride != "" {
		return g.baseOverride + path
	}
	base := "https://api.safaricom.co.ke"
	if g.sandbox {
		base = "https://sandbox.safaricom.co.ke"
	}
	return base + path
}

// Authenticate exchanges the consumer key/secret for a short-lived bearer
// token via client-credentials grant.
func (g *Gateway) Authenticate(ctx context.Context) (token string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGatewayCall("auth", start, err == nil) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint("/oauth/v1/generate?grant_type=client_credentials"), nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(g.consumerKey + ":" + g.consumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayAuth, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http %d", domain.ErrGatewayAuth, resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", domain.ErrGatewayAuth, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrGatewayAuth)
	}
	return out.AccessToken, nil
}

// InitiatePush submits an STK push request and returns the provider's
// CheckoutRequestID.
func (g *Gateway) InitiatePush(ctx context.Context, phone string, amount int64, reference, description string) (string, error) {
	token, err := g.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	ts := g.timestamp()
	payload := map[string]any{
		"BusinessShortCode": g.shortcode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            g.shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       g.callbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   description,
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint("/mpesa/stkpush/v1/processrequest"), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall("stkpush", start, false)
		return "", &GatewayError{Op: "stkpush", Payload: err.Error()}
	}
	metrics.ObserveGatewayCall("stkpush", start, resp.StatusCode == http.StatusOK)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{Op: "stkpush", Status: resp.StatusCode, Payload: string(body)}
	}
	var ack struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return "", &GatewayError{Op: "stkpush", Status: resp.StatusCode, Payload: string(body)}
	}
	if ack.ResponseCode != adapter.CodeSuccess || ack.CheckoutRequestID == "" {
		return "", &GatewayError{Op: "stkpush", Status: resp.StatusCode, Payload: string(body)}
	}
	return ack.CheckoutRequestID, nil
}

// QueryStatus polls the provider for an initiated payment's outcome and
// collapses the raw response into the closed StatusResult set.
func (g *Gateway) QueryStatus(ctx context.Context, trackingID string) (adapter.StatusResult, error) {
	pending := adapter.StatusResult{Outcome: adapter.OutcomePending}

	token, err := g.Authenticate(ctx)
	if err != nil {
		return pending, err
	}
	ts := g.timestamp()
	payload := map[string]any{
		"BusinessShortCode": g.shortcode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"CheckoutRequestID": trackingID,
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint("/mpesa/stkpushquery/v1/query"), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		// Transport trouble on a single query never hard-fails the payment.
		metrics.ObserveGatewayCall("stkquery", start, false)
		return pending, nil
	}
	metrics.ObserveGatewayCall("stkquery", start, resp.StatusCode == http.StatusOK)
	defer resp.Body.Close()
	var out struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pending, nil
	}
	return adapter.OutcomeForCode(out.ResultCode, out.ResultDesc), nil
}

// timestamp is the provider's yyyyMMddHHmmss format.
func (g *Gateway) timestamp() string {
	return g.now().Format("20060102150405")
}

// password is base64(shortcode + passkey + timestamp) per the STK spec.
func (g *Gateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.shortcode + g.passkey + timestamp))
}
