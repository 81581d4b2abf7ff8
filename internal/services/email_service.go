package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/projectflow/loginguard/pkg/logger"
)

// sesSender is the subset of the SES client used for notifications
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier emails the account owner when their login is locked
type SESLockoutNotifier struct {
	client      sesSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESLockoutNotifier creates a notifier backed by AWS SES
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESLockoutNotifier(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func newSESLockoutNotifier(client sesSender, fromAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// NotifyLockout sends the lockout notice for email
func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, email string, lockoutEnd time.Time) error {
	until := lockoutEnd.UTC().Format("15:04 MST on Jan 2, 2006")

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h2>Sign-in temporarily locked</h2>
    <p>We detected several failed sign-in attempts on your ProjectFlow account.</p>
    <p>For your security, sign-in is locked until <strong>%s</strong>.</p>
    <p>If this was you, wait for the lock to expire or reset your password.
    If it wasn't, we recommend resetting your password as soon as the lock expires.</p>
    <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, until)

	textBody := fmt.Sprintf(`Sign-in temporarily locked

We detected several failed sign-in attempts on your ProjectFlow account.
For your security, sign-in is locked until %s.

If this was you, wait for the lock to expire or reset your password.
If it wasn't, we recommend resetting your password as soon as the lock expires.

This is an automated message. Please do not reply to this email.
`, until)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your ProjectFlow sign-in has been locked"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	n.logger.Info("lockout notification sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
