package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtucloud/virtucloud-backend/pkg/cardpay"
	"github.com/virtucloud/virtucloud-backend/pkg/config"
	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/mpesa"
)

type stubPaymentRepo struct {
	payments map[uuid.UUID]*models.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: map[uuid.UUID]*models.Payment{}}
}

func (s *stubPaymentRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	copied := *payment
	s.payments[payment.ID] = &copied
	return nil
}

func (s *stubPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, failReason *string, at time.Time) error {
	if p, ok := s.payments[id]; ok {
		p.Status = status
		if failReason != nil {
			p.FailReason = failReason
		}
	}
	return nil
}

func (s *stubPaymentRepo) SetProviderRef(ctx context.Context, id uuid.UUID, ref string, at time.Time) error {
	if p, ok := s.payments[id]; ok {
		p.ProviderRef = &ref
	}
	return nil
}

func (s *stubPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.payments[id], nil
}

func (s *stubPaymentRepo) FindByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	for _, p := range s.payments {
		if p.ProviderRef != nil && *p.ProviderRef == ref {
			return p, nil
		}
	}
	return nil, nil
}

func (s *stubPaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubPaymentRepo) ListRecent(ctx context.Context, limit int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range s.payments {
		out = append(out, *p)
	}
	return out, nil
}

type stubPlanRepo struct {
	plans map[uuid.UUID]*models.RatePlan
}

func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.RatePlan, error) {
	return s.plans[id], nil
}

func (s *stubPlanRepo) FindByName(ctx context.Context, name enums.PlanName) (*models.RatePlan, error) {
	for _, p := range s.plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

type stubGranter struct {
	grants []uuid.UUID
	months []int
}

func (s *stubGranter) Grant(ctx context.Context, userID uuid.UUID, plan *models.RatePlan, months int) (*models.Subscription, error) {
	s.grants = append(s.grants, userID)
	s.months = append(s.months, months)
	return &models.Subscription{
		UserID:          userID,
		PlanName:        plan.Name,
		Price:           plan.PriceAmount,
		CPUCores:        plan.CPUCores,
		MaxVMs:          plan.MaxVMs,
		MaxBackups:      plan.MaxBackups,
		Status:          enums.SubscriptionStatusActive,
		Active:          true,
		StartDate:       time.Now().UTC(),
		NextBillingDate: time.Now().UTC().AddDate(0, months, 0),
	}, nil
}

type stubMpesa struct {
	params []mpesa.STKPushParams
	result *mpesa.STKPushResult
	err    error
}

func (s *stubMpesa) InitiateSTKPush(ctx context.Context, params mpesa.STKPushParams) (*mpesa.STKPushResult, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubCard struct {
	params []cardpay.ChargeParams
	result *cardpay.ChargeResult
	err    error
}

func (s *stubCard) Charge(ctx context.Context, params cardpay.ChargeParams) (*cardpay.ChargeResult, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type serviceFixture struct {
	svc     *Service
	repo    *stubPaymentRepo
	granter *stubGranter
	mpesa   *stubMpesa
	card    *stubCard
	plan    *models.RatePlan
}

func newFixture(t *testing.T, billing config.BillingConfig) *serviceFixture {
	t.Helper()
	plan := &models.RatePlan{
		ID:           uuid.New(),
		Name:         enums.PlanNameSilver,
		PriceAmount:  decimal.RequireFromString("19.99"),
		CurrencyCode: "USD",
		CPUCores:     3,
		MaxVMs:       5,
		MaxBackups:   3,
	}
	repo := newStubPaymentRepo()
	granter := &stubGranter{}
	mp := &stubMpesa{result: &mpesa.STKPushResult{MerchantRequestID: "mr-1", CheckoutRequestID: "ws_CO_123"}}
	card := &stubCard{result: &cardpay.ChargeResult{PaymentID: "sq-pay-1", Status: "COMPLETED"}}

	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Plans:         &stubPlanRepo{plans: map[uuid.UUID]*models.RatePlan{plan.ID: plan}},
		Subscriptions: granter,
		Mpesa:         mp,
		Card:          card,
		Billing:       billing,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &serviceFixture{svc: svc, repo: repo, granter: granter, mpesa: mp, card: card, plan: plan}
}

func TestSubscribeMockCompletesAndGrants(t *testing.T) {
	f := newFixture(t, config.BillingConfig{ActivateOnInitiation: true, SubscriptionMonths: 1})
	userID := uuid.New()

	resp, err := f.svc.Subscribe(context.Background(), userID, SubscribeRequest{
		PlanID: f.plan.ID,
		Method: "mock",
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if resp.Payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %q", resp.Payment.Status)
	}
	if resp.Subscription == nil || resp.Subscription.PlanName != enums.PlanNameSilver {
		t.Fatal("expected subscription in response")
	}
	if len(f.granter.grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(f.granter.grants))
	}
}

func TestSubscribeUnknownMethodRejected(t *testing.T) {
	f := newFixture(t, config.BillingConfig{})

	_, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeRequest{
		PlanID: f.plan.ID,
		Method: "bitcoin",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestSubscribeUnknownPlanRejected(t *testing.T) {
	f := newFixture(t, config.BillingConfig{})

	_, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeRequest{
		PlanID: uuid.New(),
		Method: "mock",
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubscribeCardChargesInCents(t *testing.T) {
	f := newFixture(t, config.BillingConfig{SubscriptionMonths: 1})
	userID := uuid.New()

	resp, err := f.svc.Subscribe(context.Background(), userID, SubscribeRequest{
		PlanID:    f.plan.ID,
		Method:    "card",
		CardToken: "cnon:card-nonce",
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(f.card.params) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(f.card.params))
	}
	charge := f.card.params[0]
	if charge.AmountCents != 1999 {
		t.Fatalf("expected 1999 cents, got %d", charge.AmountCents)
	}
	if charge.SourceID != "cnon:card-nonce" {
		t.Fatalf("unexpected source id %q", charge.SourceID)
	}
	if resp.Payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %q", resp.Payment.Status)
	}
	if resp.Payment.ProviderRef == nil || *resp.Payment.ProviderRef != "sq-pay-1" {
		t.Fatal("expected gateway payment id stored as provider ref")
	}
}

func TestSubscribeCardGatewayFailureRecordsFailedPayment(t *testing.T) {
	f := newFixture(t, config.BillingConfig{})
	f.card.err = pkgerrors.New(pkgerrors.CodeDependency, "card gateway unavailable")

	_, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeRequest{
		PlanID:    f.plan.ID,
		Method:    "card",
		CardToken: "cnon:card-nonce",
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if len(f.granter.grants) != 0 {
		t.Fatal("failed charge must not grant a subscription")
	}

	var failed *models.Payment
	for _, p := range f.repo.payments {
		failed = p
	}
	if failed == nil || failed.Status != enums.PaymentStatusFailed {
		t.Fatal("expected payment to be marked failed")
	}
	if failed.FailReason == nil {
		t.Fatal("expected a fail reason")
	}
}

func TestSubscribeMpesaPendingWithProviderRef(t *testing.T) {
	f := newFixture(t, config.BillingConfig{ActivateOnInitiation: true, SubscriptionMonths: 1})
	userID := uuid.New()

	resp, err := f.svc.Subscribe(context.Background(), userID, SubscribeRequest{
		PlanID:      f.plan.ID,
		Method:      "mpesa",
		PhoneNumber: "0712345678",
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if resp.Payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %q", resp.Payment.Status)
	}
	if resp.Payment.ProviderRef == nil || *resp.Payment.ProviderRef != "ws_CO_123" {
		t.Fatal("expected checkout request id stored as provider ref")
	}
	if resp.Subscription == nil {
		t.Fatal("expected immediate activation")
	}
	if len(f.mpesa.params) != 1 {
		t.Fatalf("expected 1 push, got %d", len(f.mpesa.params))
	}
	if f.mpesa.params[0].PhoneNumber != "254712345678" {
		t.Fatalf("expected normalized phone, got %q", f.mpesa.params[0].PhoneNumber)
	}
	if !f.mpesa.params[0].Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected push amount %s", f.mpesa.params[0].Amount)
	}
}

func TestSubscribeMpesaInvalidPhone(t *testing.T) {
	f := newFixture(t, config.BillingConfig{})

	_, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeRequest{
		PlanID:      f.plan.ID,
		Method:      "mpesa",
		PhoneNumber: "12345",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
	if len(f.mpesa.params) != 0 {
		t.Fatal("no push should be sent for an invalid phone")
	}
}

func TestConfirmMpesaCallbackGrantsOnDeferredActivation(t *testing.T) {
	f := newFixture(t, config.BillingConfig{ActivateOnInitiation: false, SubscriptionMonths: 1})
	userID := uuid.New()

	if _, err := f.svc.Subscribe(context.Background(), userID, SubscribeRequest{
		PlanID:      f.plan.ID,
		Method:      "mpesa",
		PhoneNumber: "0712345678",
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(f.granter.grants) != 0 {
		t.Fatal("deferred activation must not grant at initiation")
	}

	err := f.svc.ConfirmMpesaCallback(context.Background(), MpesaCallbackInput{
		CheckoutRequestID: "ws_CO_123",
		ResultCode:        0,
	})
	if err != nil {
		t.Fatalf("ConfirmMpesaCallback: %v", err)
	}
	if len(f.granter.grants) != 1 || f.granter.grants[0] != userID {
		t.Fatal("expected subscription grant on successful callback")
	}

	payment, err := f.repo.FindByProviderRef(context.Background(), "ws_CO_123")
	if err != nil || payment == nil {
		t.Fatalf("find payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %q", payment.Status)
	}

	// Replay must be a no-op.
	if err := f.svc.ConfirmMpesaCallback(context.Background(), MpesaCallbackInput{
		CheckoutRequestID: "ws_CO_123",
		ResultCode:        0,
	}); err != nil {
		t.Fatalf("replayed callback: %v", err)
	}
	if len(f.granter.grants) != 1 {
		t.Fatal("replayed callback must not grant again")
	}
}

func TestConfirmMpesaCallbackFailureRecordsReason(t *testing.T) {
	f := newFixture(t, config.BillingConfig{ActivateOnInitiation: false})
	userID := uuid.New()

	if _, err := f.svc.Subscribe(context.Background(), userID, SubscribeRequest{
		PlanID:      f.plan.ID,
		Method:      "mpesa",
		PhoneNumber: "0712345678",
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	err := f.svc.ConfirmMpesaCallback(context.Background(), MpesaCallbackInput{
		CheckoutRequestID: "ws_CO_123",
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	if err != nil {
		t.Fatalf("ConfirmMpesaCallback: %v", err)
	}

	payment, _ := f.repo.FindByProviderRef(context.Background(), "ws_CO_123")
	if payment.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment, got %q", payment.Status)
	}
	if payment.FailReason == nil || *payment.FailReason != "Request cancelled by user" {
		t.Fatal("expected gateway reason recorded")
	}
	if len(f.granter.grants) != 0 {
		t.Fatal("declined payment must not grant a subscription")
	}
}

func TestListRecentCoversAllUsers(t *testing.T) {
	f := newFixture(t, config.BillingConfig{SubscriptionMonths: 1})

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeRequest{
			PlanID: f.plan.ID,
			Method: "mock",
		}); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	list, err := f.svc.ListRecent(context.Background())
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(list))
	}
	seen := map[uuid.UUID]bool{}
	for _, p := range list {
		seen[p.UserID] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected payments from 2 users, got %d", len(seen))
	}
}

func TestConfirmMpesaCallbackUnknownRef(t *testing.T) {
	f := newFixture(t, config.BillingConfig{})

	err := f.svc.ConfirmMpesaCallback(context.Background(), MpesaCallbackInput{
		CheckoutRequestID: "ws_CO_missing",
		ResultCode:        0,
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
