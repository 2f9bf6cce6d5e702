package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// Mailer sends transactional emails.
type Mailer interface {
	SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error
}

// NoopMailer is used in tests and when mail is disabled.
type NoopMailer struct{}

func (s *NoopMailer) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	log.Printf("[Mailer] noop send otp code to=%s", toEmail)
	return nil
}

// FallbackMailer tries an ordered list of transports until one succeeds.
// The chain replaces exception-driven "try primary, catch, try secondary"
// control flow with an explicit sequence.
type FallbackMailer struct {
	transports []Mailer
}

func NewFallbackMailer(transports ...Mailer) (*FallbackMailer, error) {
	if len(transports) == 0 {
		return nil, fmt.Errorf("at least one mail transport is required")
	}
	return &FallbackMailer{transports: transports}, nil
}

func (s *FallbackMailer) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	var lastErr error
	for i, transport := range s.transports {
		err := transport.SendOTPCode(ctx, toEmail, code, idempotencyKey)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("[Mailer] transport %d failed: %v", i, err)
	}
	return fmt.Errorf("all mail transports failed: %w", lastErr)
}

// ResendMailer sends emails via the Resend REST API.
type ResendMailer struct {
	from   string
	client *resend.Client
}

func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendMailer{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendMailer) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your admin login code",
		Text:    fmt.Sprintf("Your one-time login code is %s. It expires in 5 minutes.", code),
		Html:    fmt.Sprintf("<p>Your one-time login code is <strong>%s</strong>.</p><p>It expires in 5 minutes.</p>", code),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
