package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/config"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := NewClient(context.Background(), config.MpesaConfig{
		BaseURL:        baseURL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/webhooks/mpesa",
		Timeout:        5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestInitiateSTKPushRoundsAmountUpAndReturnsIDs(t *testing.T) {
	var captured stkPushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "key" || pass != "secret" {
				t.Errorf("unexpected basic auth %s:%s", user, pass)
			}
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1", ExpiresIn: "3599"})
		case "/mpesa/stkpush/v1/processrequest":
			if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
				t.Errorf("unexpected authorization header %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
			json.NewEncoder(w).Encode(stkPushResponse{
				MerchantRequestID: "merchant-1",
				CheckoutRequestID: "checkout-1",
				ResponseCode:      "0",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	fixed := time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	result, err := client.InitiateSTKPush(context.Background(), STKPushParams{
		Amount:      decimal.NewFromFloat(19.99),
		PhoneNumber: "0712345678",
	})
	if err != nil {
		t.Fatalf("InitiateSTKPush: %v", err)
	}

	if result.CheckoutRequestID != "checkout-1" {
		t.Fatalf("unexpected checkout request id %q", result.CheckoutRequestID)
	}
	if result.MerchantRequestID != "merchant-1" {
		t.Fatalf("unexpected merchant request id %q", result.MerchantRequestID)
	}
	if captured.Amount != 20 {
		t.Fatalf("expected amount rounded up to 20, got %d", captured.Amount)
	}
	if captured.PhoneNumber != "254712345678" {
		t.Fatalf("expected normalized phone, got %q", captured.PhoneNumber)
	}
	if captured.Timestamp != "20250915103000" {
		t.Fatalf("unexpected timestamp %q", captured.Timestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20250915103000"))
	if captured.Password != wantPassword {
		t.Fatalf("unexpected password %q", captured.Password)
	}
	if captured.TransactionType != transactionType {
		t.Fatalf("unexpected transaction type %q", captured.TransactionType)
	}
}

func TestInitiateSTKPushRejectedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1"})
			return
		}
		json.NewEncoder(w).Encode(stkPushResponse{
			ResponseCode:        "1032",
			ResponseDescription: "Request cancelled by user",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.InitiateSTKPush(context.Background(), STKPushParams{
		Amount:      decimal.NewFromFloat(9.99),
		PhoneNumber: "0712345678",
	})
	if err == nil {
		t.Fatal("expected rejected push to return error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestInitiateSTKPushInvalidPhone(t *testing.T) {
	client := newTestClient(t, "http://unused")
	_, err := client.InitiateSTKPush(context.Background(), STKPushParams{
		Amount:      decimal.NewFromFloat(9.99),
		PhoneNumber: "not-a-phone",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAccessTokenIsCached(t *testing.T) {
	var oauthCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			oauthCalls++
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1"})
			return
		}
		json.NewEncoder(w).Encode(stkPushResponse{ResponseCode: "0", CheckoutRequestID: "c", MerchantRequestID: "m"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()
	params := STKPushParams{Amount: decimal.NewFromInt(10), PhoneNumber: "0712345678"}

	if _, err := client.InitiateSTKPush(ctx, params); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if _, err := client.InitiateSTKPush(ctx, params); err != nil {
		t.Fatalf("second push: %v", err)
	}
	if oauthCalls != 1 {
		t.Fatalf("expected a single oauth call, got %d", oauthCalls)
	}
}
