package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

// Mailer sends one customer email. Failures bubble up so the consumer can
// dead-letter the message.
type Mailer interface {
	Send(to, subject, body string) error
}

type NotificationHandler struct {
	mailer Mailer
	logger logger.Logger
}

func NewNotificationHandler(mailer Mailer, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		mailer: mailer,
		logger: logger,
	}
}

// HandleNotification maps a status update to its customer email, if one is
// defined. Unmapped statuses are acknowledged without sending.
func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.StatusUpdateMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	kind, ok := domain.NotificationKindFor(msg.NewStatus)
	if !ok {
		h.logger.Debug("notification_skipped", fmt.Sprintf("No message defined for status %s", msg.NewStatus),
			msg.OrderNumber, map[string]interface{}{
				"order_number": msg.OrderNumber,
				"new_status":   msg.NewStatus,
			})
		return nil
	}

	subject, text := composeEmail(kind, msg)
	if err := h.mailer.Send(msg.CustomerEmail, subject, text); err != nil {
		h.logger.Error("email_send_failed", "Failed to send notification email", msg.OrderNumber,
			map[string]interface{}{
				"order_number": msg.OrderNumber,
				"kind":         kind,
			}, err)
		return err
	}

	h.logger.Info("email_sent", fmt.Sprintf("Sent %s email for order %s", kind, msg.OrderNumber),
		msg.OrderNumber, map[string]interface{}{
			"order_number": msg.OrderNumber,
			"kind":         kind,
		})

	return nil
}

func composeEmail(kind domain.NotificationKind, msg interfaces.StatusUpdateMessage) (subject, body string) {
	switch kind {
	case domain.NotifyOrderConfirmation:
		subject = fmt.Sprintf("Your order %s is confirmed", msg.OrderNumber)
		body = fmt.Sprintf("Hi %s,\n\nWe have started working on your order %s. We will let you know as soon as it is ready for pickup.\n",
			msg.CustomerName, msg.OrderNumber)
	case domain.NotifyOrderReady:
		subject = fmt.Sprintf("Order %s is ready for pickup", msg.OrderNumber)
		body = fmt.Sprintf("Hi %s,\n\nYour order %s is ready. See you at the bakery!\n",
			msg.CustomerName, msg.OrderNumber)
	case domain.NotifyThankYou:
		subject = fmt.Sprintf("Thank you for your order %s", msg.OrderNumber)
		body = fmt.Sprintf("Hi %s,\n\nThank you for picking up order %s. We hope to see you again soon.\n",
			msg.CustomerName, msg.OrderNumber)
	}
	return subject, body
}
