// Package mailer sends notification emails without blocking request handling.
package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"taskboard-backend/pkg/config"
)

// Message is a single outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks Resend, SMTP or log-only delivery from the email config.
func NewSender(cfg config.EmailConfig, logger *slog.Logger) Sender {
	switch {
	case cfg.ResendAPIKey != "":
		return NewResendSender(cfg)
	case cfg.SMTPHost != "":
		return NewSMTPSender(cfg)
	default:
		return NewLogSender(logger)
	}
}

const sendTimeout = 30 * time.Second

// Dispatcher runs sends on background goroutines and logs failures.
// Wait blocks until every dispatched send has finished.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	// inline sends synchronously; serverless runtimes freeze goroutines after the response
	inline bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *slog.Logger, inline bool) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger, inline: inline}
}

// Dispatch sends msg fire-and-forget. Errors never reach the caller.
func (d *Dispatcher) Dispatch(msg Message) {
	if d == nil || d.sender == nil {
		return
	}
	if d.inline {
		d.send(msg)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(msg)
	}()
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("email send failed",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return
	}
	d.logger.Debug("email sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
}

// Wait blocks until in-flight sends complete or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
