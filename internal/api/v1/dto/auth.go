package dto

// MagicLinkRequestDTO is used for incoming magic-link requests
type MagicLinkRequestDTO struct {
	Email string `json:"email" validate:"required,email"`
}

// MagicLinkResponseDTO is returned after a magic-link request is accepted
type MagicLinkResponseDTO struct {
	Message string `json:"message"`
}

// SessionResponseDTO describes the signed-in identity
type SessionResponseDTO struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
