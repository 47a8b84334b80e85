package payments

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/api/controllers/callerctx"
	"github.com/angelmondragon/fulfillment-backend/api/responses"
	"github.com/angelmondragon/fulfillment-backend/api/validators"
	internalpayments "github.com/angelmondragon/fulfillment-backend/internal/payments"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const maxNotesLength = 2000

type updatePaymentRequest struct {
	Update          string           `json:"update" validate:"required"`
	PaidAmount      *decimal.Decimal `json:"paid_amount"`
	RemainingAmount *decimal.Decimal `json:"remaining_amount"`
	Notes           *string          `json:"notes"`
}

type markReceivedRequest struct {
	PaymentDate *string `json:"payment_date"`
	Notes       *string `json:"notes"`
}

// UpdateStatus records a payment update on a shipped order.
func UpdateStatus(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := callerctx.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		update, err := enums.ParsePaymentUpdate(body.Update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment update"))
			return
		}

		order, err := svc.UpdatePaymentStatus(r.Context(), internalpayments.UpdatePaymentInput{
			Actor:           actor,
			OrderID:         orderID,
			Update:          update,
			PaidAmount:      body.PaidAmount,
			RemainingAmount: body.RemainingAmount,
			Notes:           validators.SanitizeOptional(body.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListFollowups returns the followup schedule of an order.
func ListFollowups(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		followups, err := svc.ListFollowups(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, followups)
	}
}

// MarkReceived records that the payment a followup chases has arrived.
func MarkReceived(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := callerctx.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		followupID, err := validators.ParseUUIDParam(r, "followupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body markReceivedRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentDate, err := validators.ParseOptionalDate(body.PaymentDate, "payment_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		followup, err := svc.MarkFollowupReceived(r.Context(), internalpayments.MarkReceivedInput{
			Actor:       actor,
			FollowupID:  followupID,
			PaymentDate: paymentDate,
			Notes:       validators.SanitizeOptional(body.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, followup)
	}
}
