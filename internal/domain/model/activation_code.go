package model

import "time"

type ActivationCodeStatus string

const (
	ActivationCodeStatusPending ActivationCodeStatus = "pending"
	ActivationCodeStatusUsed    ActivationCodeStatus = "used"
	ActivationCodeStatusExpired ActivationCodeStatus = "expired"
)

// ActivationCodeTTL is the validity window of a monthly code.
const ActivationCodeTTL = 30 * 24 * time.Hour

// ActivationCode is the monthly shared-secret token. At most one pending,
// unexpired code exists per calendar month; the batch processor owns that
// cardinality.
type ActivationCode struct {
	ID           string
	Code         string // "SIX" + 4 digits + 4 uppercase alphanumerics
	Status       ActivationCodeStatus
	UsedByUserID *string
	CreatedAt    time.Time
	ExpiresAt    time.Time // CreatedAt + ActivationCodeTTL
	AdminNote    string
}
