package dispatches

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/api/controllers/callerctx"
	"github.com/angelmondragon/fulfillment-backend/api/responses"
	"github.com/angelmondragon/fulfillment-backend/api/validators"
	internaldispatches "github.com/angelmondragon/fulfillment-backend/internal/dispatches"
	"github.com/angelmondragon/fulfillment-backend/internal/ledger"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	maxNotesLength    = 2000
	maxTrackingLength = 128
)

type lineRequest struct {
	OrderItemID string `json:"order_item_id" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
}

type createDispatchRequest struct {
	Type               string        `json:"type" validate:"required"`
	Items              []lineRequest `json:"items" validate:"dive"`
	DispatchDate       *string       `json:"dispatch_date"`
	Notes              *string       `json:"notes"`
	CourierID          *string       `json:"courier_id" validate:"omitempty,uuid"`
	TrackingID         *string       `json:"tracking_id"`
	ProductionRecordID *string       `json:"production_record_id" validate:"omitempty,uuid"`
}

type createReturnRequest struct {
	Items        []lineRequest `json:"items" validate:"required,min=1,dive"`
	DispatchDate *string       `json:"dispatch_date"`
	Notes        *string       `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create records a forward shipment.
func Create(svc internaldispatches.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body createDispatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispatchType, err := enums.ParseDispatchType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispatch type"))
			return
		}
		dispatchDate, err := validators.ParseOptionalDate(body.DispatchDate, "dispatch_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispatch, err := svc.CreateDispatch(r.Context(), internaldispatches.CreateDispatchInput{
			Actor:              actor,
			OrderID:            orderID,
			Type:               dispatchType,
			Lines:              toLines(body.Items),
			DispatchDate:       dispatchDate,
			Notes:              validators.SanitizeOptional(body.Notes, maxNotesLength),
			CourierID:          optionalUUID(body.CourierID),
			TrackingID:         validators.SanitizeOptional(body.TrackingID, maxTrackingLength),
			ProductionRecordID: optionalUUID(body.ProductionRecordID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispatch)
	}
}

// CreateReturn records units coming back from the customer.
func CreateReturn(svc internaldispatches.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body createReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispatchDate, err := validators.ParseOptionalDate(body.DispatchDate, "dispatch_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispatch, err := svc.CreateReturnDispatch(r.Context(), internaldispatches.CreateReturnInput{
			Actor:        actor,
			OrderID:      orderID,
			Lines:        toLines(body.Items),
			DispatchDate: dispatchDate,
			Notes:        validators.SanitizeOptional(body.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispatch)
	}
}

// List returns every dispatch of an order, returns included.
func List(svc internaldispatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListDispatches(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateStatus moves a shipment forward.
func UpdateStatus(svc internaldispatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := callerctx.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispatchID, err := validators.ParseUUIDParam(r, "dispatchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithDispatchID(r.Context(), dispatchID.String())

		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseShipmentStatus(body.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipment status"))
			return
		}

		dispatch, err := svc.UpdateDispatchStatus(ctx, internaldispatches.UpdateStatusInput{
			Actor:      actor,
			DispatchID: dispatchID,
			Status:     status,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispatch)
	}
}

func toLines(items []lineRequest) []ledger.Line {
	if len(items) == 0 {
		return nil
	}
	lines := make([]ledger.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, ledger.Line{OrderItemID: uuid.MustParse(item.OrderItemID), Quantity: item.Quantity})
	}
	return lines
}

func optionalUUID(raw *string) *uuid.UUID {
	if raw == nil || *raw == "" {
		return nil
	}
	id := uuid.MustParse(*raw)
	return &id
}
