package model

import "time"

type Provider string

const (
	ProviderTelecomCredit Provider = "telecom_credit"
	ProviderAlphaNote     Provider = "alpha_note"
	ProviderBankTransfer  Provider = "bank_transfer"
	ProviderOther         Provider = "other"
)

// KnownProvider reports whether p belongs to the closed provider set.
func KnownProvider(p Provider) bool {
	switch p {
	case ProviderTelecomCredit, ProviderAlphaNote, ProviderBankTransfer, ProviderOther:
		return true
	}
	return false
}

type LinkStatus string

const (
	LinkStatusPending   LinkStatus = "pending"
	LinkStatusCompleted LinkStatus = "completed"
	LinkStatusExpired   LinkStatus = "expired"
	LinkStatusCancelled LinkStatus = "cancelled"
)

// LinkTTL is the fixed validity window of a payment link.
const LinkTTL = 24 * time.Hour

// PaymentLink is an offer to pay a fixed amount, valid for LinkTTL after creation.
type PaymentLink struct {
	LinkID    string // 32 lowercase hex chars
	OrderID   string // "ORD-" + base36 timestamp + "-" + random hex, globally unique
	UserID    string
	Amount    int64 // smallest currency unit
	Provider  Provider
	Status    LinkStatus
	CreatedAt time.Time
	ExpiresAt time.Time // CreatedAt + LinkTTL, exactly
}

// Expired reports whether the link is past its validity window at `now`.
// Expiry is computed on read; the stored status may still say pending.
func (l *PaymentLink) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
