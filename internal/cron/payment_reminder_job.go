package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	paymentReminderJobName   = "payment-followup-reminder"
	defaultReminderBatchSize = 200
)

type reminderSender interface {
	SendDueReminders(ctx context.Context, asOf time.Time, limit int) (int, error)
}

type PaymentReminderJobParams struct {
	Logger    *logger.Logger
	Reminders reminderSender
	Metrics   processedRecorder
	BatchSize int
}

// NewPaymentReminderJob emits reminders for payment followups whose date has
// arrived while the order is still unpaid.
func NewPaymentReminderJob(params PaymentReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reminders == nil {
		return nil, fmt.Errorf("reminder sender required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReminderBatchSize
	}
	return &paymentReminderJob{
		logg:      params.Logger,
		reminders: params.Reminders,
		metrics:   params.Metrics,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

type paymentReminderJob struct {
	logg      *logger.Logger
	reminders reminderSender
	metrics   processedRecorder
	batchSize int
	now       func() time.Time
}

func (j *paymentReminderJob) Name() string { return paymentReminderJobName }

// Run drains due followups a batch at a time until a short batch comes back.
func (j *paymentReminderJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sent, err := j.reminders.SendDueReminders(ctx, asOf, j.batchSize)
		if err != nil {
			j.record(total)
			return fmt.Errorf("payment reminders: %w", err)
		}
		total += sent
		if sent < j.batchSize {
			break
		}
	}
	j.record(total)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":          asOf,
		"reminders_sent": total,
	})
	j.logg.Info(logCtx, "payment followup reminders sent")
	return nil
}

func (j *paymentReminderJob) record(total int) {
	if j.metrics != nil && total > 0 {
		j.metrics.AddProcessed(j.Name(), int64(total))
	}
}
