package payments

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danukusuma/servehub_be/internal/models"
)

type recordingNotifier struct {
	titles []string
}

func (r *recordingNotifier) Notify(_ uuid.UUID, _ models.NotificationType, title, _ string, _ *uuid.UUID) {
	r.titles = append(r.titles, title)
}

func seedPendingGatewayPayment(t *testing.T, f *fixture) *models.Payment {
	t.Helper()
	p, err := f.Orch.Process(f.CustomerID, ProcessInput{
		BookingID:     f.Booking.ID,
		PaymentType:   models.PaymentTypeLater,
		PaymentMethod: models.MethodCard,
	})
	require.NoError(t, err)
	return p
}

func TestWebhookSucceededConfirmsPaymentAndBooking(t *testing.T) {
	f := newFixture(t)
	p := seedPendingGatewayPayment(t, f)

	event := WebhookEvent{
		Type:       EventPaymentSucceeded,
		ObjectID:   p.TransactionID,
		RawPayload: json.RawMessage(`{"id":"` + p.TransactionID + `","status":"succeeded"}`),
	}
	require.NoError(t, f.Orch.HandleWebhook(event))

	var got models.Payment
	require.NoError(t, f.DB.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
	assert.NotEmpty(t, got.GatewayResponse)

	var b models.Booking
	require.NoError(t, f.DB.First(&b, "id = ?", f.Booking.ID).Error)
	assert.True(t, b.IsPaid)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
}

func TestWebhookReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	p := seedPendingGatewayPayment(t, f)

	event := WebhookEvent{
		Type:       EventPaymentSucceeded,
		ObjectID:   p.TransactionID,
		RawPayload: json.RawMessage(`{"status":"succeeded"}`),
	}
	require.NoError(t, f.Orch.HandleWebhook(event))
	require.NoError(t, f.Orch.HandleWebhook(event)) // delivered twice

	var count int64
	require.NoError(t, f.DB.Model(&models.Payment{}).Where("booking_id = ?", f.Booking.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var got models.Payment
	require.NoError(t, f.DB.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
}

func TestWebhookNotifiesOnlyOnTransition(t *testing.T) {
	f := newFixture(t)
	p := seedPendingGatewayPayment(t, f)

	rec := &recordingNotifier{}
	f.Orch.Notifier = rec

	event := WebhookEvent{
		Type: EventPaymentSucceeded, ObjectID: p.TransactionID,
		RawPayload: json.RawMessage(`{}`),
	}
	require.NoError(t, f.Orch.HandleWebhook(event))
	require.Len(t, rec.titles, 1)

	// replay changes nothing and must not notify again
	require.NoError(t, f.Orch.HandleWebhook(event))
	assert.Len(t, rec.titles, 1)

	// unknown transaction never notifies
	require.NoError(t, f.Orch.HandleWebhook(WebhookEvent{
		Type: EventPaymentSucceeded, ObjectID: "pi_unknown",
		RawPayload: json.RawMessage(`{}`),
	}))
	assert.Len(t, rec.titles, 1)
}

func TestWebhookFailedMarksPayment(t *testing.T) {
	f := newFixture(t)
	p := seedPendingGatewayPayment(t, f)

	event := WebhookEvent{
		Type:       EventPaymentFailed,
		ObjectID:   p.TransactionID,
		RawPayload: json.RawMessage(`{"status":"failed"}`),
	}
	require.NoError(t, f.Orch.HandleWebhook(event))

	var got models.Payment
	require.NoError(t, f.DB.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, got.Status)

	var b models.Booking
	require.NoError(t, f.DB.First(&b, "id = ?", f.Booking.ID).Error)
	assert.False(t, b.IsPaid)
}

func TestWebhookFailedAfterSuccessIgnored(t *testing.T) {
	f := newFixture(t)
	p := seedPendingGatewayPayment(t, f)

	require.NoError(t, f.Orch.HandleWebhook(WebhookEvent{
		Type: EventPaymentSucceeded, ObjectID: p.TransactionID,
		RawPayload: json.RawMessage(`{}`),
	}))
	// out-of-order failure event for an already settled payment
	require.NoError(t, f.Orch.HandleWebhook(WebhookEvent{
		Type: EventPaymentFailed, ObjectID: p.TransactionID,
		RawPayload: json.RawMessage(`{}`),
	}))

	var got models.Payment
	require.NoError(t, f.DB.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
}

func TestWebhookRefundedMarksPayment(t *testing.T) {
	f := newFixture(t)
	p := seedPendingGatewayPayment(t, f)

	require.NoError(t, f.Orch.HandleWebhook(WebhookEvent{
		Type: EventPaymentSucceeded, ObjectID: p.TransactionID,
		RawPayload: json.RawMessage(`{}`),
	}))
	require.NoError(t, f.Orch.HandleWebhook(WebhookEvent{
		Type: EventChargeRefunded, ObjectID: p.TransactionID,
		RawPayload: json.RawMessage(`{}`),
	}))

	var got models.Payment
	require.NoError(t, f.DB.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, models.PaymentStatusRefunded, got.Status)
}

func TestWebhookUnknownTransactionSwallowed(t *testing.T) {
	f := newFixture(t)

	err := f.Orch.HandleWebhook(WebhookEvent{
		Type: EventPaymentSucceeded, ObjectID: "pi_unknown",
		RawPayload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
}

func TestWebhookUnknownEventTypeIgnored(t *testing.T) {
	f := newFixture(t)

	err := f.Orch.HandleWebhook(WebhookEvent{Type: "customer_created", ObjectID: "x"})
	require.NoError(t, err)
}
