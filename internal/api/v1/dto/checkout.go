package dto

// CheckoutCreateDTO is used for incoming checkout requests
type CheckoutCreateDTO struct {
	Fingerprint string `json:"fingerprint" validate:"omitempty,max=128"`
}

// CheckoutResponseDTO is returned when a checkout session is created
type CheckoutResponseDTO struct {
	CheckoutID  string `json:"checkout_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CheckoutConfirmDTO is used for incoming confirmation requests
type CheckoutConfirmDTO struct {
	CheckoutID string `json:"checkout_id" validate:"required"`
}

// CheckoutConfirmResponseDTO reports the reconciled session state
type CheckoutConfirmResponseDTO struct {
	CheckoutID   string `json:"checkout_id"`
	Status       string `json:"status"`
	CreditIssued bool   `json:"credit_issued"`
}
