package models

// ContactForm is a visitor's message from the public contact form.
type ContactForm struct {
	Name         string `json:"name" binding:"required,max=200"`
	Email        string `json:"email" binding:"required,email,max=320"`
	Subject      string `json:"subject" binding:"required,max=300"`
	Message      string `json:"message" binding:"required,max=10000"`
	CaptchaToken string `json:"captchaToken"`
}

// ContactResult reports the outcome of a submitted form.
type ContactResult struct {
	Message          string `json:"message"`
	ConfirmationSent bool   `json:"confirmationSent"`
}
