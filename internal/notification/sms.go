package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultGatewayTimeout = 5 * time.Second

// SMSGateway posts messages to an HTTP SMS provider as
// {"to": ..., "from": ..., "body": ...}. Any non-2xx answer is a failed send.
type SMSGateway struct {
	url      string
	token    string
	senderID string
	timeout  time.Duration
}

// NewSMSGateway builds a gateway client. token may be empty when the provider
// authenticates by network location.
func NewSMSGateway(url, token, senderID string) *SMSGateway {
	return &SMSGateway{url: url, token: token, senderID: senderID, timeout: defaultGatewayTimeout}
}

type smsPayload struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

// Send delivers the message body to message.Destination.
func (g *SMSGateway) Send(ctx context.Context, message Message) error {
	if message.Destination == "" {
		return errors.New("sms: destination is required")
	}

	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("sms: %w", context.DeadlineExceeded)
	}

	agent := fiber.Post(g.url).
		Timeout(timeout).
		JSON(smsPayload{To: message.Destination, From: g.senderID, Body: message.Body})
	if g.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+g.token)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("sms: post to gateway: %w", errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("sms: gateway answered %d: %s", status, string(body))
	}
	return nil
}
