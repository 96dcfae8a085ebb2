package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/pkg/recaptcha"
)

// CaptchaResult is the verdict on a captcha token.
type CaptchaResult struct {
	Success    bool
	Score      *float64
	ErrorCodes []string
}

// CaptchaVerifier checks captcha tokens submitted with public forms.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) CaptchaResult
}

// RecaptchaVerifier accepts reCAPTCHA v3 tokens scoring at least minScore.
type RecaptchaVerifier struct {
	client   *recaptcha.Client
	secret   string
	minScore float64
}

func NewRecaptchaVerifier(client *recaptcha.Client, secret string, minScore float64) *RecaptchaVerifier {
	return &RecaptchaVerifier{client: client, secret: secret, minScore: minScore}
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) CaptchaResult {
	if v.secret == "" {
		log.Error().Msg("RECAPTCHA_SECRET_KEY is not set")
		return CaptchaResult{ErrorCodes: []string{"missing-secret-key"}}
	}

	resp, err := v.client.Verify(ctx, token, remoteIP)
	if err != nil {
		log.Error().Err(err).Msg("reCAPTCHA verification request failed")
		return CaptchaResult{ErrorCodes: []string{"exception"}}
	}

	if !resp.Success {
		log.Warn().Strs("error_codes", resp.ErrorCodes).Msg("reCAPTCHA verification failed")
		return CaptchaResult{Score: resp.Score, ErrorCodes: resp.ErrorCodes}
	}

	// v2 tokens carry no score; success alone decides.
	if resp.Score == nil {
		return CaptchaResult{Success: true}
	}
	if *resp.Score < v.minScore {
		log.Warn().Float64("score", *resp.Score).Float64("threshold", v.minScore).Msg("reCAPTCHA score too low")
		return CaptchaResult{Score: resp.Score, ErrorCodes: []string{"low-score"}}
	}
	return CaptchaResult{Success: true, Score: resp.Score}
}
