package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

// FollowupDays is the length of the followup schedule in days.
const FollowupDays = 14

const defaultReminderBatch = 200

type UpdatePaymentInput struct {
	Actor           orders.Actor
	OrderID         uuid.UUID
	Update          enums.PaymentUpdate
	PaidAmount      *decimal.Decimal
	RemainingAmount *decimal.Decimal
	Notes           *string
}

type MarkReceivedInput struct {
	Actor       orders.Actor
	FollowupID  uuid.UUID
	PaymentDate *time.Time
	Notes       *string
}

type Service interface {
	UpdatePaymentStatus(ctx context.Context, input UpdatePaymentInput) (*models.Order, error)
	ScheduleFollowups(ctx context.Context, orderID uuid.UUID, from time.Time, actor *outbox.ActorRef) error
	MarkFollowupReceived(ctx context.Context, input MarkReceivedInput) (*models.PaymentFollowup, error)
	ListFollowups(ctx context.Context, orderID uuid.UUID) ([]models.PaymentFollowup, error)
	SendDueReminders(ctx context.Context, asOf time.Time, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repository Repository
	Orders     orders.Repository
	Writer     *orders.Writer
	Tx         txRunner
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo   Repository
	orders orders.Repository
	writer *orders.Writer
	tx     txRunner
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("followup repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repository,
		orders: params.Orders,
		writer: params.Writer,
		tx:     params.Tx,
		logg:   params.Logger,
		now:    clock,
	}, nil
}

// UpdatePaymentStatus records a payment update. Nothing can be marked before
// goods have shipped.
func (s *service) UpdatePaymentStatus(ctx context.Context, input UpdatePaymentInput) (*models.Order, error) {
	if !input.Update.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment status %q", input.Update))
	}

	var updated *models.Order
	err := s.writer.WithLockedOrder(ctx, "update_payment_status", input.OrderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if !order.Status.HasShipped() {
			return pkgerrors.Rejected(pkgerrors.ReasonPaymentRequiresDispatch,
				fmt.Sprintf("payment cannot be recorded while the order is %s", order.Status)).
				WithDetails(map[string]any{"order_status": order.Status})
		}
		paid, remaining, err := resolveAmounts(input, order.TotalPrice)
		if err != nil {
			return err
		}

		status := input.Update.Status()
		updates := map[string]any{
			"payment_status":   status,
			"paid_amount":      paid,
			"remaining_amount": remaining,
		}
		if input.Notes != nil {
			updates["payment_notes"] = *input.Notes
			order.PaymentNotes = input.Notes
		}
		if err := s.orders.WithTx(tx).UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		order.PaymentStatus = status
		order.PaidAmount = paid
		order.RemainingAmount = remaining

		if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.PaymentStatusChangedEvent{
				OrderID:         order.ID,
				Status:          status,
				PaidAmount:      paid,
				RemainingAmount: remaining,
			},
		}); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// resolveAmounts returns the paid and remaining amounts for an update. A
// partial update needs at least one of them; the other is derived from total.
func resolveAmounts(input UpdatePaymentInput, total decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	for _, amount := range []*decimal.Decimal{input.PaidAmount, input.RemainingAmount} {
		if amount != nil && amount.IsNegative() {
			return decimal.Zero, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "payment amounts cannot be negative")
		}
	}
	switch input.Update {
	case enums.PaymentUpdateComplete:
		return total, decimal.Zero, nil
	case enums.PaymentUpdatePending:
		return decimal.Zero, total, nil
	}

	switch {
	case input.PaidAmount != nil && input.RemainingAmount != nil:
		return *input.PaidAmount, *input.RemainingAmount, nil
	case input.PaidAmount != nil:
		return *input.PaidAmount, floorZero(total.Sub(*input.PaidAmount)), nil
	case input.RemainingAmount != nil:
		return floorZero(total.Sub(*input.RemainingAmount)), *input.RemainingAmount, nil
	default:
		return decimal.Zero, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "partial payment requires a paid or remaining amount")
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ScheduleFollowups writes one followup per day for the FollowupDays days
// after from. An order that already has followups is left untouched.
func (s *service) ScheduleFollowups(ctx context.Context, orderID uuid.UUID, from time.Time, actor *outbox.ActorRef) error {
	dates := FollowupDates(from)
	return s.writer.WithLockedOrder(ctx, "schedule_followups", orderID, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.CountByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count followups")
		}
		if existing > 0 {
			return nil
		}

		followups := make([]models.PaymentFollowup, 0, len(dates))
		for _, date := range dates {
			followups = append(followups, models.PaymentFollowup{
				ID:           uuid.New(),
				OrderID:      order.ID,
				FollowupDate: date,
			})
		}
		if err := repo.CreateBatch(ctx, followups); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create followups")
		}

		return s.writer.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFollowupsRecorded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.PaymentFollowupsRecordedEvent{
				OrderID:   order.ID,
				Count:     len(followups),
				FirstDate: dates[0],
				LastDate:  dates[len(dates)-1],
			},
		})
	})
}

// FollowupDates returns the calendar days D+1 through D+FollowupDays, where
// D is the UTC date of from.
func FollowupDates(from time.Time) []time.Time {
	from = from.UTC()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, 0, FollowupDays)
	for i := 1; i <= FollowupDays; i++ {
		out = append(out, day.AddDate(0, 0, i))
	}
	return out
}

func (s *service) MarkFollowupReceived(ctx context.Context, input MarkReceivedInput) (*models.PaymentFollowup, error) {
	existing, err := s.findFollowup(ctx, s.repo, input.FollowupID)
	if err != nil {
		return nil, err
	}
	paymentDate := s.now().UTC()
	if input.PaymentDate != nil && !input.PaymentDate.IsZero() {
		paymentDate = input.PaymentDate.UTC()
	}

	var updated *models.PaymentFollowup
	err = s.writer.WithLockedOrder(ctx, "mark_followup_received", existing.OrderID, func(ctx context.Context, tx *gorm.DB, _ *models.Order) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkReceived(ctx, input.FollowupID, paymentDate, input.Notes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark followup received")
		}
		followup, err := s.findFollowup(ctx, repo, input.FollowupID)
		if err != nil {
			return err
		}
		updated = followup
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListFollowups(ctx context.Context, orderID uuid.UUID) ([]models.PaymentFollowup, error) {
	if _, err := s.orders.FindOrder(ctx, orderID); err != nil {
		return nil, orders.MapOrderError(err, orderID)
	}
	out, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list followups")
	}
	return out, nil
}

// SendDueReminders queues payment_followup_due for every followup dated on or
// before asOf that still needs chasing, and stamps it so it is sent once.
func (s *service) SendDueReminders(ctx context.Context, asOf time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultReminderBatch
	}
	sent := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		due, err := repo.LockDue(ctx, asOf.UTC(), limit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load due followups")
		}
		ids := make([]uuid.UUID, 0, len(due))
		for _, followup := range due {
			if err := s.writer.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFollowupDue,
				AggregateType: enums.AggregatePaymentFollowup,
				AggregateID:   followup.ID,
				Data: payloads.PaymentFollowupDueEvent{
					FollowupID:          followup.ID,
					OrderID:             followup.OrderID,
					InternalOrderNumber: followup.InternalOrderNumber,
					CustomerID:          followup.CustomerID,
					FollowupDate:        followup.FollowupDate,
				},
			}); err != nil {
				return err
			}
			ids = append(ids, followup.ID)
		}
		if err := repo.MarkReminded(ctx, ids, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp reminded followups")
		}
		sent = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if sent > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "reminders", sent), "payment followup reminders queued")
	}
	return sent, nil
}

func (s *service) findFollowup(ctx context.Context, repo Repository, id uuid.UUID) (*models.PaymentFollowup, error) {
	followup, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Rejected(pkgerrors.ReasonFollowupNotFound, "payment followup not found").
				WithDetails(map[string]any{"followup_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment followup")
	}
	return followup, nil
}
