package dto

import "time"

// AuthError marks a request with missing or invalid identity.
// Forbidden distinguishes 403 (known user, wrong session) from 401.
type AuthError struct {
	Forbidden bool
	Message   string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RateLimitError is a custom error that carries admission details
type RateLimitError struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded"
}

// RateLimitExceededData is the data payload for 429 responses
type RateLimitExceededData struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// RateLimitExceededResponse is the full 429 response structure
type RateLimitExceededResponse struct {
	Success   bool                  `json:"success"`
	Code      int                   `json:"code"`
	Message   string                `json:"message"`
	ErrorType string                `json:"error_type"`
	Data      RateLimitExceededData `json:"data"`
}
