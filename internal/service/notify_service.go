package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// CompletionSummary describes a finished reading session
type CompletionSummary struct {
	SessionID   string
	DeckName    string
	Total       int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration is the wall time from the first draw to completion
func (c CompletionSummary) Duration() time.Duration {
	return c.CompletedAt.Sub(c.StartedAt).Round(time.Second)
}

// Notifier is told when a session reaches the end of its deck
type Notifier interface {
	SessionCompleted(ctx context.Context, summary CompletionSummary) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NotifyService sends completion notices via Amazon SES
type NotifyService struct {
	client    sesAPI
	toEmail   string
	fromEmail string
	fromName  string
	enabled   bool
	logger    *slog.Logger
}

// NewNotifyService creates a notifier. It is disabled, and sends nothing,
// unless both fromEmail and toEmail are set.
func NewNotifyService(ctx context.Context, awsRegion, fromEmail, fromName, toEmail string, logger *slog.Logger) (*NotifyService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if fromEmail == "" || toEmail == "" {
		logger.Info("completion notices disabled: SES_FROM_EMAIL or NOTIFY_EMAIL_TO not configured")
		return &NotifyService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("completion notices enabled", "from", fromEmail, "to", toEmail, "region", awsRegion)
	return newNotifyService(sesv2.NewFromConfig(cfg), fromEmail, fromName, toEmail, logger), nil
}

func newNotifyService(client sesAPI, fromEmail, fromName, toEmail string, logger *slog.Logger) *NotifyService {
	return &NotifyService{
		client:    client,
		toEmail:   toEmail,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    logger,
	}
}

// IsEnabled returns whether notices are sent
func (s *NotifyService) IsEnabled() bool {
	return s.enabled
}

// SessionCompleted emails a short summary of the finished session
func (s *NotifyService) SessionCompleted(ctx context.Context, summary CompletionSummary) error {
	if !s.enabled {
		s.logger.Debug("skipping completion notice (service disabled)", "session", summary.SessionID)
		return nil
	}

	subject := fmt.Sprintf("読み上げ完了: %s (%d枚)", summary.DeckName, summary.Total)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.footer { margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<h1>すべての札を読み終えました</h1>
		<p>Deck: <strong>%s</strong></p>
		<p>Cards read: %d</p>
		<p>Time: %s</p>
		<div class="footer">
			<p>Session %s</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(summary.DeckName), summary.Total, summary.Duration(), summary.SessionID)

	textBody := fmt.Sprintf(`すべての札を読み終えました

Deck: %s
Cards read: %d
Time: %s

Session %s
`, summary.DeckName, summary.Total, summary.Duration(), summary.SessionID)

	return s.sendEmail(ctx, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *NotifyService) sendEmail(ctx context.Context, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", s.toEmail, err)
	}

	s.logger.Info("completion notice sent", "to", s.toEmail, "message_id", aws.ToString(result.MessageId))
	return nil
}
