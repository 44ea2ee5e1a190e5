package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// SubscribeRequest starts a payment for a rate plan.
type SubscribeRequest struct {
	PlanID      uuid.UUID `json:"plan_id" validate:"required"`
	Method      string    `json:"method" validate:"required,oneof=mock card mpesa"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CardToken   string    `json:"card_token,omitempty"`
}

// PaymentDTO is the transport shape for a payment record.
type PaymentDTO struct {
	ID           uuid.UUID           `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	PlanName     enums.PlanName      `json:"plan_name"`
	Amount       decimal.Decimal     `json:"amount"`
	CurrencyCode string              `json:"currency_code"`
	Description  string              `json:"description,omitempty"`
	Method       enums.PaymentMethod `json:"method"`
	Status       enums.PaymentStatus `json:"status"`
	ProviderRef  *string             `json:"provider_ref,omitempty"`
	FailReason   *string             `json:"fail_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// SubscriptionDTO summarizes the subscription state returned after payment.
type SubscriptionDTO struct {
	PlanName        enums.PlanName           `json:"plan_name"`
	Status          enums.SubscriptionStatus `json:"status"`
	StartDate       time.Time                `json:"start_date"`
	NextBillingDate time.Time                `json:"next_billing_date"`
}

// SubscribeResponse reports the payment outcome. Subscription is nil while a
// mobile money payment is still awaiting its callback.
type SubscribeResponse struct {
	Payment      PaymentDTO       `json:"payment"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
}

// MpesaCallbackInput carries the fields extracted from a gateway callback.
type MpesaCallbackInput struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
}

func paymentToDTO(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:           p.ID,
		UserID:       p.UserID,
		PlanName:     p.PlanName,
		Amount:       p.Amount,
		CurrencyCode: p.CurrencyCode,
		Description:  p.Description,
		Method:       p.Method,
		Status:       p.Status,
		ProviderRef:  p.ProviderRef,
		FailReason:   p.FailReason,
		CreatedAt:    p.CreatedAt,
	}
}

func subscriptionToDTO(sub *models.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		PlanName:        sub.PlanName,
		Status:          sub.Status,
		StartDate:       sub.StartDate,
		NextBillingDate: sub.NextBillingDate,
	}
}
