package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/virtucloud/virtucloud-backend/api/responses"
	"github.com/virtucloud/virtucloud-backend/internal/payments"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// stkCallbackBody mirrors the Daraja STK push callback envelope.
type stkCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// MpesaCallback settles a pending mobile money payment from the gateway.
func MpesaCallback(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body stkCallbackBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback payload"))
			return
		}

		callback := body.Body.StkCallback
		err := svc.ConfirmMpesaCallback(r.Context(), payments.MpesaCallbackInput{
			CheckoutRequestID: callback.CheckoutRequestID,
			ResultCode:        callback.ResultCode,
			ResultDesc:        callback.ResultDesc,
		})
		if err != nil {
			// Unknown checkout ids are acknowledged anyway: a 4xx makes the
			// gateway retry a callback that can never match a payment.
			if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeNotFound {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"checkout_request_id": callback.CheckoutRequestID,
					})
					logg.Info(ctx, "mpesa callback for unknown checkout id")
				}
			} else {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		// Daraja expects this acknowledgment shape; anything else triggers retries.
		responses.WriteSuccess(w, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
	}
}
