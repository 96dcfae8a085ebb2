package service

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	gomail "gopkg.in/mail.v2"

	"github.com/greensmil/site_api/internal/config"
	"github.com/greensmil/site_api/pkg/resend"
)

// EmailMessage is one outgoing email.
type EmailMessage struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// EmailSender delivers email through a provider and returns the provider's
// message id when it has one.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// NewEmailSender builds the sender selected by cfg.Provider.
func NewEmailSender(ctx context.Context, cfg config.EmailConfig) (EmailSender, error) {
	switch cfg.Provider {
	case "resend":
		return NewResendSender(resend.NewClient(cfg.ResendAPIKey)), nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SESRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return NewSESSender(ses.NewFromConfig(awsCfg), cfg.FromName), nil
	case "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromName), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// ResendSender sends through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
}

func NewResendSender(client *resend.Client) *ResendSender {
	return &ResendSender{client: client}
}

func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	resp, err := s.client.SendEmail(ctx, resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// sesAPI is the subset of the SES client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends through Amazon SES.
type SESSender struct {
	client   sesAPI
	fromName string
}

func NewSESSender(client sesAPI, fromName string) *SESSender {
	return &SESSender{client: client, fromName: fromName}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	input := &ses.SendEmailInput{
		Source:      aws.String(formatAddress(s.fromName, msg.From)),
		Destination: &sestypes.Destination{ToAddresses: []string{msg.To}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Html: &sestypes.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				Text: &sestypes.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	dialer   *gomail.Dialer
	fromName string
}

func NewSMTPSender(host string, port int, username, password, fromName string) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(host, port, username, password),
		fromName: fromName,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	m := buildSMTPMessage(msg, s.fromName)

	errc := make(chan error, 1)
	go func() { errc <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-errc:
		if err != nil {
			return "", fmt.Errorf("smtp send: %w", err)
		}
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func buildSMTPMessage(msg EmailMessage, fromName string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", formatAddress(fromName, msg.From))
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)
	return m
}

// formatAddress adds a display name to addr unless it already has one.
func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	if parsed, err := mail.ParseAddress(addr); err == nil && parsed.Name != "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}
