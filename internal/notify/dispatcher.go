package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medconnecthq/medconnect/pkg/mail"
	"github.com/medconnecthq/medconnect/pkg/metrics"
)

// ErrNoChannel signals that the account carries no usable contact channel.
var ErrNoChannel = errors.New("notify: no contact channel available")

// Dispatcher delivers short text messages over email or SMS. Delivery is
// fire-and-forget from the caller's perspective: a failure surfaces as a
// request-level error and is never retried or queued.
type Dispatcher struct {
	mailer mail.Mailer
	sms    SMSSender
}

// NewDispatcher constructs a Dispatcher. Either sender may be nil, in which
// case the corresponding channel is unavailable.
func NewDispatcher(mailer mail.Mailer, sms SMSSender) *Dispatcher {
	return &Dispatcher{mailer: mailer, sms: sms}
}

// Dispatch sends body to the email address when present, otherwise to the
// phone number. Email is the preferred channel.
func (d *Dispatcher) Dispatch(ctx context.Context, email, phone, subject, body string) error {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	switch {
	case email != "":
		return d.SendEmail(ctx, email, subject, body)
	case phone != "":
		return d.SendSMS(ctx, phone, body)
	default:
		return ErrNoChannel
	}
}

// SendEmail delivers a plain text email to a single recipient.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	if d.mailer == nil {
		return errors.New("notify: email channel not configured")
	}

	err := d.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		metrics.Dispatches.WithLabelValues("email", "failure").Inc()
		return fmt.Errorf("notify: send email: %w", err)
	}

	metrics.Dispatches.WithLabelValues("email", "success").Inc()
	return nil
}

// SendSMS delivers a text message to a phone number.
func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) error {
	if d.sms == nil {
		return errors.New("notify: sms channel not configured")
	}

	if err := d.sms.Send(ctx, to, body); err != nil {
		metrics.Dispatches.WithLabelValues("sms", "failure").Inc()
		return fmt.Errorf("notify: send sms: %w", err)
	}

	metrics.Dispatches.WithLabelValues("sms", "success").Inc()
	return nil
}
