package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type fakeMailer struct {
	to, subject, body string
	calls             int
	err               error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

func encodeUpdate(t *testing.T, status domain.OrderStatus) []byte {
	t.Helper()
	body, err := json.Marshal(interfaces.StatusUpdateMessage{
		OrderID:       1,
		OrderNumber:   "BAKE_20250601_001",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		NewStatus:     status,
	})
	require.NoError(t, err)
	return body
}

func TestHandleNotificationSendsMappedEmail(t *testing.T) {
	mailer := &fakeMailer{}
	handler := NewNotificationHandler(mailer, logger.New("test"))

	err := handler.HandleNotification(context.Background(), encodeUpdate(t, domain.StatusReadyForPickup))
	require.NoError(t, err)

	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, "jane@example.com", mailer.to)
	assert.Contains(t, mailer.subject, "ready for pickup")
	assert.Contains(t, mailer.body, "Jane Doe")
	assert.Contains(t, mailer.body, "BAKE_20250601_001")
}

func TestHandleNotificationSkipsUnmappedStatuses(t *testing.T) {
	mailer := &fakeMailer{}
	handler := NewNotificationHandler(mailer, logger.New("test"))

	for _, status := range []domain.OrderStatus{domain.StatusNew, domain.StatusCancelled, domain.StatusRefunded} {
		err := handler.HandleNotification(context.Background(), encodeUpdate(t, status))
		require.NoError(t, err)
	}
	assert.Zero(t, mailer.calls)
}

func TestHandleNotificationMailerFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp unreachable")}
	handler := NewNotificationHandler(mailer, logger.New("test"))

	err := handler.HandleNotification(context.Background(), encodeUpdate(t, domain.StatusCompleted))
	assert.Error(t, err)
}

func TestHandleNotificationMalformedPayload(t *testing.T) {
	mailer := &fakeMailer{}
	handler := NewNotificationHandler(mailer, logger.New("test"))

	err := handler.HandleNotification(context.Background(), []byte("{not json"))
	assert.Error(t, err)
	assert.Zero(t, mailer.calls)
}
