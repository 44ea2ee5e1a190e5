package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/config"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

const (
	oauthPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	timestampLayout = "20060102150405"
	transactionType = "CustomerPayBillOnline"
)

var (
	errCredentialsRequired = errors.New("mpesa consumer key and secret are required")
	errShortCodeRequired   = errors.New("mpesa short code and passkey are required")
	errLoggerRequired      = errors.New("mpesa logger is required")
)

// Client wraps the Daraja STK push flow with centralized auth, logging, and error mapping.
type Client struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	logger     *logger.Logger
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// STKPushParams carries the inputs for one payment prompt.
type STKPushParams struct {
	// Amount is rounded up to the next whole unit before submission.
	Amount           decimal.Decimal
	PhoneNumber      string
	AccountReference string
	Description      string
}

// STKPushResult holds the gateway identifiers returned on acceptance.
type STKPushResult struct {
	MerchantRequestID string
	CheckoutRequestID string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorMessage        string `json:"errorMessage"`
}

// NewClient initializes the Daraja wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.MpesaConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errCredentialsRequired
	}
	if strings.TrimSpace(cfg.ShortCode) == "" || strings.TrimSpace(cfg.Passkey) == "" {
		return nil, errShortCodeRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
		now:        time.Now,
	}

	logg.Info(ctx, "mpesa client initialized")
	return c, nil
}

// InitiateSTKPush prompts the customer's handset to authorize the payment and
// returns the gateway identifiers to correlate the async callback.
func (c *Client) InitiateSTKPush(ctx context.Context, params STKPushParams) (*STKPushResult, error) {
	phone, err := NormalizePhone(params.PhoneNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mpesa phone number")
	}

	amount := params.Amount.Ceil().IntPart()
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mpesa amount must be positive")
	}

	token, err := c.accessTokenLocked(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().UTC().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))

	reference := strings.TrimSpace(params.AccountReference)
	if reference == "" {
		reference = "VirtuCloud"
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		description = "Subscription payment"
	}

	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	c.log(ctx, "request", "stk_push", map[string]any{
		"amount": amount,
		"phone":  phone,
	})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding stk push request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building stk push request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "stk_push", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mpesa stk push failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading stk push response")
	}

	var parsed stkPushResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.log(ctx, "error", "stk_push", map[string]any{"error": err.Error(), "status": resp.StatusCode})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding stk push response")
	}

	if resp.StatusCode != http.StatusOK || parsed.ResponseCode != "0" {
		reason := parsed.ResponseDescription
		if parsed.ErrorMessage != "" {
			reason = parsed.ErrorMessage
		}
		c.log(ctx, "error", "stk_push", map[string]any{"status": resp.StatusCode, "error": reason})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("mpesa rejected stk push: %s", reason))
	}

	c.log(ctx, "response", "stk_push", map[string]any{
		"merchant_request_id": parsed.MerchantRequestID,
		"checkout_request_id": parsed.CheckoutRequestID,
	})

	return &STKPushResult{
		MerchantRequestID: parsed.MerchantRequestID,
		CheckoutRequestID: parsed.CheckoutRequestID,
	}, nil
}

func (c *Client) accessTokenLocked(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+oauthPath, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building oauth request")
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mpesa oauth failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("mpesa oauth returned status %d", resp.StatusCode))
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding oauth response")
	}
	if parsed.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "mpesa oauth returned empty token")
	}

	// Daraja tokens last an hour; refresh a minute early.
	c.accessToken = parsed.AccessToken
	c.tokenExpiry = c.now().Add(59 * time.Minute)
	return c.accessToken, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("mpesa %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("mpesa %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"phone", "password", "secret", "token"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
