package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nishantd01/smart-backoffice/metrics"
	"github.com/nishantd01/smart-backoffice/models"
)

const (
	formContentType = "application/x-www-form-urlencoded"
	paidCacheTTL    = 24 * time.Hour
	paidCachePrefix = "backoffice:payment:session:"
)

var (
	// ErrInvalidRequest marks caller mistakes; handlers answer them with 400.
	ErrInvalidRequest = errors.New("invalid payment request")
	// ErrInvalidCredential indicates the gateway rejected the secret key.
	ErrInvalidCredential = errors.New("payment gateway invalid credential")
)

// RequestError is an ErrInvalidRequest whose message is shown to the caller verbatim.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Is(target error) bool { return target == ErrInvalidRequest }

// Cache stores verified sessions. *cache.Redis satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Config holds gateway client configuration.
type Config struct {
	BaseURL         string
	SecretKey       string
	Timeout         time.Duration
	DefaultCurrency string
	PublicSiteURL   string
}

// Client talks to the Stripe Checkout REST API.
type Client struct {
	logger   *slog.Logger
	baseURL  string
	key      string
	currency string
	siteURL  string
	http     *http.Client
	metrics  *metrics.Metrics
	cache    Cache
}

// New creates a payment client. cache may be nil.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics, cache Cache) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	currency := strings.ToLower(cfg.DefaultCurrency)
	if currency == "" {
		currency = "thb"
	}
	return &Client{
		logger:   logger.With("component", "payment"),
		baseURL:  base,
		key:      cfg.SecretKey,
		currency: currency,
		siteURL:  strings.TrimRight(cfg.PublicSiteURL, "/"),
		http:     &http.Client{Timeout: timeout},
		metrics:  m,
		cache:    cache,
	}
}

// CheckoutRequest describes one package purchase.
type CheckoutRequest struct {
	Package     string
	PackageName string
	Amount      models.Amount
	Currency    string
	SuccessURL  string
	CancelURL   string
	// Origin is the caller's site, used to build default return URLs.
	Origin string
}

// CheckoutFromRecord maps a normalised router record onto a checkout request.
func CheckoutFromRecord(rec models.LeadRecord, origin string) CheckoutRequest {
	return CheckoutRequest{
		Package:     rec.Package,
		PackageName: rec.PackageName,
		Amount:      rec.Price(),
		Currency:    rec.Currency,
		SuccessURL:  rec.SuccessURL,
		CancelURL:   rec.CancelURL,
		Origin:      origin,
	}
}

type CheckoutResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

type VerifyResult struct {
	Success       bool              `json:"success"`
	Paid          bool              `json:"paid"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	CustomerEmail *string           `json:"customerEmail"`
	PaymentStatus string            `json:"paymentStatus"`
	Metadata      map[string]string `json:"metadata"`
}

type checkoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     *int64            `json:"amount_total"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email *string `json:"email"`
	} `json:"customer_details"`
}

// CreateCheckout opens a hosted checkout session for a single package.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if !req.Amount.Valid || req.Amount.Value == 0 || req.PackageName == "" {
		return nil, &RequestError{Message: "Missing required fields: amount and packageName"}
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = c.currency
	}
	site := strings.TrimRight(req.Origin, "/")
	if site == "" {
		site = c.siteURL
	}
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = site + "?session_id={CHECKOUT_SESSION_ID}&payment_status=success"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = site + "?payment_status=cancel"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][product_data][name]", req.PackageName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(MinorUnits(req.Amount.Value), 10))
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("metadata[package]", req.Package)
	form.Set("metadata[packageName]", req.PackageName)

	var session checkoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()), &session); err != nil {
		return nil, err
	}

	c.logger.Info("checkout session created", "session_id", session.ID, "package", req.Package)
	return &CheckoutResult{Success: true, SessionID: session.ID, URL: session.URL}, nil
}

// VerifyPayment reads back a checkout session. Paid sessions are cached.
func (c *Client) VerifyPayment(ctx context.Context, sessionID string) (*VerifyResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, &RequestError{Message: "Missing required field: sessionId"}
	}

	cacheKey := paidCachePrefix + sessionID
	if c.cache != nil {
		var cached VerifyResult
		ok, err := c.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			c.logger.Warn("read payment cache failed", "error", err)
		} else if ok {
			return &cached, nil
		}
	}

	var session checkoutSession
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}

	res := &VerifyResult{
		Success:       true,
		Paid:          session.PaymentStatus == "paid",
		Currency:      session.Currency,
		PaymentStatus: session.PaymentStatus,
		Metadata:      session.Metadata,
	}
	if session.AmountTotal != nil {
		res.Amount = float64(*session.AmountTotal) / 100
	}
	if res.Currency == "" {
		res.Currency = c.currency
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	if session.CustomerDetails != nil {
		res.CustomerEmail = session.CustomerDetails.Email
	}

	if res.Paid && c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, res, paidCacheTTL); err != nil {
			c.logger.Warn("set payment cache failed", "error", err)
		}
	}
	return res, nil
}

// MinorUnits converts a major-unit amount to the gateway's smallest unit.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.key, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", formContentType)
	}

	label := metricEndpoint(endpoint)
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.PaymentRequests.WithLabelValues(label, "error").Inc()
		}
		return fmt.Errorf("payment request: %w", err)
	}
	defer res.Body.Close()

	statusLabel := strconv.Itoa(res.StatusCode)
	if c.metrics != nil {
		c.metrics.PaymentRequests.WithLabelValues(label, statusLabel).Inc()
		c.metrics.PaymentLatency.WithLabelValues(label, statusLabel).Observe(time.Since(start).Seconds())
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 300 {
		return classifyHTTPError(res.StatusCode, data)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// metricEndpoint drops session ids so label cardinality stays bounded.
func metricEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "/v1/checkout/sessions/") {
		return "/v1/checkout/sessions/:id"
	}
	return endpoint
}

func classifyHTTPError(status int, body []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		message = env.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrInvalidCredential, message)
	case env.Error.Type == "invalid_request_error" && status == http.StatusBadRequest:
		return &RequestError{Message: message}
	}
	return fmt.Errorf("payment gateway error: status=%d message=%s", status, message)
}
