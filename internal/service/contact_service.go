package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/config"
	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

// CaptchaError is returned when a captcha token is rejected.
type CaptchaError struct {
	ErrorCodes []string
}

func (e *CaptchaError) Error() string {
	if len(e.ErrorCodes) == 0 {
		return "captcha verification failed"
	}
	return "captcha verification failed: " + strings.Join(e.ErrorCodes, ", ")
}

func (e *CaptchaError) Unwrap() error { return utils.ErrCaptchaFailed }

// ContactService forwards contact form submissions to the site owner and
// confirms receipt to the visitor. Rate limiting is applied by the route.
type ContactService struct {
	sender         EmailSender
	captcha        CaptchaVerifier
	events         *security.Log
	from           string
	to             string
	siteName       string
	captchaEnabled bool
}

func NewContactService(sender EmailSender, captcha CaptchaVerifier, events *security.Log, emailCfg config.EmailConfig, recaptchaCfg config.RecaptchaConfig) *ContactService {
	return &ContactService{
		sender:         sender,
		captcha:        captcha,
		events:         events,
		from:           emailCfg.From,
		to:             emailCfg.To,
		siteName:       emailCfg.FromName,
		captchaEnabled: recaptchaCfg.SiteKey != "",
	}
}

// Submit verifies the captcha, notifies the site owner and sends the visitor
// a confirmation. A failed confirmation does not fail the submission.
func (s *ContactService) Submit(ctx context.Context, form models.ContactForm, ip, userAgent string) (*models.ContactResult, error) {
	// 1. Captcha
	if form.CaptchaToken != "" {
		res := s.captcha.Verify(ctx, form.CaptchaToken, ip)
		if !res.Success {
			s.events.CaptchaFailure(ip, res.Score, res.ErrorCodes, security.Meta{UserAgent: userAgent})
			return nil, &CaptchaError{ErrorCodes: res.ErrorCodes}
		}
	} else if s.captchaEnabled {
		return nil, utils.ErrCaptchaRequired
	}

	// 2. Configuration
	if s.from == "" || s.to == "" {
		log.Error().Msg("Email configuration incomplete: EMAIL_FROM and EMAIL_TO are required")
		return nil, utils.ErrEmailNotConfigured
	}

	data := contactTemplateData{ContactForm: form, SiteName: s.siteName, ContactEmail: s.to}

	// 3. Notify the site owner
	html, text, err := renderEmail("contact_notification", data)
	if err != nil {
		return nil, err
	}
	msgID, err := s.sender.Send(ctx, EmailMessage{
		To:      s.to,
		From:    s.from,
		ReplyTo: form.Email,
		Subject: "[Contact Form] " + form.Subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to send contact notification")
		return nil, errors.Join(utils.ErrEmailFailed, err)
	}
	log.Info().Str("message_id", msgID).Msg("Contact notification sent")

	// 4. Confirm to the visitor
	result := &models.ContactResult{
		Message: fmt.Sprintf("Your message has been sent successfully! We will respond to: %s", form.Email),
	}

	html, text, err = renderEmail("contact_confirmation", data)
	if err == nil {
		_, err = s.sender.Send(ctx, EmailMessage{
			To:      form.Email,
			From:    s.from,
			ReplyTo: s.to,
			Subject: "Thank you for contacting " + s.siteName,
			HTML:    html,
			Text:    text,
		})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send contact confirmation")
		return result, nil
	}

	result.ConfirmationSent = true
	result.Message += ". Please check your inbox for a confirmation email."
	return result, nil
}
