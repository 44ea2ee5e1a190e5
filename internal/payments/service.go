package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/virtucloud/virtucloud-backend/pkg/cardpay"
	"github.com/virtucloud/virtucloud-backend/pkg/config"
	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
	"github.com/virtucloud/virtucloud-backend/pkg/mpesa"
)

type planRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.RatePlan, error)
	FindByName(ctx context.Context, name enums.PlanName) (*models.RatePlan, error)
}

type subscriptionGranter interface {
	Grant(ctx context.Context, userID uuid.UUID, plan *models.RatePlan, months int) (*models.Subscription, error)
}

type mpesaClient interface {
	InitiateSTKPush(ctx context.Context, params mpesa.STKPushParams) (*mpesa.STKPushResult, error)
}

type cardCharger interface {
	Charge(ctx context.Context, params cardpay.ChargeParams) (*cardpay.ChargeResult, error)
}

// ServiceParams bundles the dependencies required to build the service.
// Mpesa and Card are optional; requests for an unconfigured method fail with
// a dependency error.
type ServiceParams struct {
	Repo          Repository
	Plans         planRepository
	Subscriptions subscriptionGranter
	Mpesa         mpesaClient
	Card          cardCharger
	Billing       config.BillingConfig
	Logger        *logger.Logger
}

// Service initiates plan payments and settles gateway callbacks.
type Service struct {
	repo    Repository
	plans   planRepository
	subs    subscriptionGranter
	mpesa   mpesaClient
	card    cardCharger
	billing config.BillingConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plans repository is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription granter is required")
	}
	return &Service{
		repo:    params.Repo,
		plans:   params.Plans,
		subs:    params.Subscriptions,
		mpesa:   params.Mpesa,
		card:    params.Card,
		billing: params.Billing,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Subscribe charges the user for a rate plan using the requested method and
// activates the subscription according to the billing configuration.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, req SubscribeRequest) (*SubscribeResponse, error) {
	method, err := enums.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", req.Method))
	}

	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rate plan not found")
	}

	switch method {
	case enums.PaymentMethodMock:
		return s.subscribeMock(ctx, userID, plan)
	case enums.PaymentMethodCard:
		return s.subscribeCard(ctx, userID, plan, req)
	case enums.PaymentMethodMpesa:
		return s.subscribeMpesa(ctx, userID, plan, req)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", req.Method))
	}
}

func (s *Service) subscribeMock(ctx context.Context, userID uuid.UUID, plan *models.RatePlan) (*SubscribeResponse, error) {
	payment := s.newPayment(userID, plan, enums.PaymentMethodMock)
	payment.Status = enums.PaymentStatusCompleted
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}

	sub, err := s.subs.Grant(ctx, userID, plan, s.months())
	if err != nil {
		return nil, err
	}
	s.logPayment(ctx, payment, "mock payment completed")
	return &SubscribeResponse{Payment: paymentToDTO(payment), Subscription: subscriptionToDTO(sub)}, nil
}

func (s *Service) subscribeCard(ctx context.Context, userID uuid.UUID, plan *models.RatePlan, req SubscribeRequest) (*SubscribeResponse, error) {
	if strings.TrimSpace(req.CardToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card_token is required for card payments")
	}
	if s.card == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}

	payment := s.newPayment(userID, plan, enums.PaymentMethodCard)
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}

	result, err := s.card.Charge(ctx, cardpay.ChargeParams{
		AmountCents: plan.PriceAmount.Shift(2).Round(0).IntPart(),
		Currency:    plan.CurrencyCode,
		SourceID:    req.CardToken,
		ReferenceID: payment.ID.String(),
		Note:        fmt.Sprintf("%s subscription", plan.Name),
	})
	if err != nil {
		s.markFailed(ctx, payment, err.Error())
		return nil, err
	}

	payment.Status = enums.PaymentStatusCompleted
	payment.ProviderRef = &result.PaymentID
	if err := s.repo.SetProviderRef(ctx, payment.ID, result.PaymentID, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store provider ref")
	}
	if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusCompleted, nil, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment")
	}

	sub, err := s.subs.Grant(ctx, userID, plan, s.months())
	if err != nil {
		return nil, err
	}
	s.logPayment(ctx, payment, "card payment completed")
	return &SubscribeResponse{Payment: paymentToDTO(payment), Subscription: subscriptionToDTO(sub)}, nil
}

func (s *Service) subscribeMpesa(ctx context.Context, userID uuid.UUID, plan *models.RatePlan, req SubscribeRequest) (*SubscribeResponse, error) {
	phone, err := mpesa.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if s.mpesa == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mobile money payments are not configured")
	}

	payment := s.newPayment(userID, plan, enums.PaymentMethodMpesa)
	payment.PhoneNumber = &phone
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}

	result, err := s.mpesa.InitiateSTKPush(ctx, mpesa.STKPushParams{
		Amount:           plan.PriceAmount,
		PhoneNumber:      phone,
		AccountReference: payment.ID.String(),
		Description:      fmt.Sprintf("%s subscription", plan.Name),
	})
	if err != nil {
		s.markFailed(ctx, payment, err.Error())
		return nil, err
	}

	payment.ProviderRef = &result.CheckoutRequestID
	if err := s.repo.SetProviderRef(ctx, payment.ID, result.CheckoutRequestID, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store provider ref")
	}

	resp := &SubscribeResponse{Payment: paymentToDTO(payment)}
	if s.billing.ActivateOnInitiation {
		sub, err := s.subs.Grant(ctx, userID, plan, s.months())
		if err != nil {
			return nil, err
		}
		resp.Subscription = subscriptionToDTO(sub)
	}
	s.logPayment(ctx, payment, "stk push initiated")
	return resp, nil
}

// ConfirmMpesaCallback settles a pending mobile money payment from the
// gateway callback. Replayed callbacks for a settled payment are ignored.
func (s *Service) ConfirmMpesaCallback(ctx context.Context, input MpesaCallbackInput) error {
	if strings.TrimSpace(input.CheckoutRequestID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}

	payment, err := s.repo.FindByProviderRef(ctx, input.CheckoutRequestID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find payment")
	}
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for callback")
	}
	if payment.Status != enums.PaymentStatusPending {
		s.logPayment(ctx, payment, "callback replay ignored")
		return nil
	}

	now := s.now().UTC()
	if input.ResultCode != 0 {
		reason := input.ResultDesc
		if reason == "" {
			reason = fmt.Sprintf("gateway result code %d", input.ResultCode)
		}
		if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusFailed, &reason, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail payment")
		}
		s.logPayment(ctx, payment, "stk push declined")
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusCompleted, nil, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment")
	}

	if !s.billing.ActivateOnInitiation {
		plan, err := s.plans.FindByName(ctx, payment.PlanName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find plan")
		}
		if plan == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "plan missing for settled payment")
		}
		if _, err := s.subs.Grant(ctx, payment.UserID, plan, s.months()); err != nil {
			return err
		}
	}
	s.logPayment(ctx, payment, "stk push completed")
	return nil
}

// History lists the user's payments, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]PaymentDTO, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	dtos := make([]PaymentDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, paymentToDTO(&records[i]))
	}
	return dtos, nil
}

const adminHistoryLimit = 200

// ListRecent returns the newest payments across all accounts for admin review.
func (s *Service) ListRecent(ctx context.Context) ([]PaymentDTO, error) {
	records, err := s.repo.ListRecent(ctx, adminHistoryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	dtos := make([]PaymentDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, paymentToDTO(&records[i]))
	}
	return dtos, nil
}

func (s *Service) newPayment(userID uuid.UUID, plan *models.RatePlan, method enums.PaymentMethod) *models.Payment {
	return &models.Payment{
		ID:           uuid.New(),
		UserID:       userID,
		PlanName:     plan.Name,
		Amount:       plan.PriceAmount,
		CurrencyCode: plan.CurrencyCode,
		Description:  fmt.Sprintf("%s subscription", plan.Name),
		Method:       method,
		Status:       enums.PaymentStatusPending,
	}
}

func (s *Service) markFailed(ctx context.Context, payment *models.Payment, reason string) {
	payment.Status = enums.PaymentStatusFailed
	payment.FailReason = &reason
	if err := s.repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusFailed, &reason, s.now().UTC()); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to record payment failure", err)
	}
}

func (s *Service) months() int {
	if s.billing.SubscriptionMonths > 0 {
		return s.billing.SubscriptionMonths
	}
	return 1
}

func (s *Service) logPayment(ctx context.Context, payment *models.Payment, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"method":     string(payment.Method),
	}), msg)
}
