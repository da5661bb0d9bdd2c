package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/yuin/goldmark"

	"emotiva/internal/config"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends transactional mail through Amazon SES. Bodies are
// written in Markdown and sent as both HTML and plain text.
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	baseURL   string
	enabled   bool
	debug     bool
	md        goldmark.Markdown
	logger    *slog.Logger
}

// NewEmailService returns a disabled service when no sender address is configured.
func NewEmailService(ctx context.Context, cfg config.EmailConfig, baseURL string, logger *slog.Logger) (*EmailService, error) {
	s := &EmailService{
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		baseURL:   baseURL,
		debug:     cfg.Debug,
		md:        goldmark.New(),
		logger:    logger,
	}
	if cfg.FromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return s, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s.client = sesv2.NewFromConfig(awsCfg)
	s.enabled = true

	logger.Info("email service enabled", slog.String("from", cfg.FromEmail), slog.String("region", cfg.AWSRegion))
	return s, nil
}

func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcome greets a newly registered profile.
func (s *EmailService) SendWelcome(ctx context.Context, toEmail, toName string) error {
	body := fmt.Sprintf(`# Welcome to Emotiva, %s!

Your account is ready. Emotiva helps you follow how the children in your care
are feeling, one small daily check-in at a time.

- Record a daily check-in with a mood, sleep and notable events
- Get alerts when something needs attention
- Review weekly reports and share them with a psychologist

[Open Emotiva](%s)
`, toName, s.baseURL)
	return s.send(ctx, toEmail, "Welcome to Emotiva", body)
}

// SendPasswordReset mails a one-hour reset link.
func (s *EmailService) SendPasswordReset(ctx context.Context, toEmail, toName, token string) error {
	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	body := fmt.Sprintf(`# Reset your password

Hi %s,

We received a request to reset your Emotiva password.

[Choose a new password](%s)

This link expires in 1 hour. If you did not ask for it, ignore this email.
`, toName, link)
	return s.send(ctx, toEmail, "Reset your Emotiva password", body)
}

// SendParentInvite invites a guardian to follow a student.
func (s *EmailService) SendParentInvite(ctx context.Context, toEmail, guardianName, studentName, schoolName, code string) error {
	link := s.baseURL + "/register?invite=" + url.QueryEscape(code)
	greeting := "Hello"
	if guardianName != "" {
		greeting = "Hello " + guardianName
	}
	body := fmt.Sprintf(`# %s is on Emotiva

%s,

**%s** uses Emotiva to follow how students feel at school, and invites you to
follow **%s** as well.

[Accept the invitation](%s)

Your invitation code is `+"`%s`"+`. It is valid for 7 days.
`, schoolName, greeting, schoolName, studentName, link, code)
	subject := fmt.Sprintf("Invitation to follow %s - %s", studentName, schoolName)
	return s.send(ctx, toEmail, subject, body)
}

func (s *EmailService) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, markdown string) error {
	if !s.enabled {
		if s.debug {
			s.logger.DebugContext(ctx, "email skipped", slog.String("to", toEmail), slog.String("subject", subject))
		}
		return nil
	}

	html, err := s.render(markdown)
	if err != nil {
		return err
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{toEmail}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(markdown), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	attrs := []any{slog.String("to", toEmail), slog.String("subject", subject)}
	if out != nil && out.MessageId != nil {
		attrs = append(attrs, slog.String("message_id", *out.MessageId))
	}
	s.logger.InfoContext(ctx, "email sent", attrs...)
	return nil
}
