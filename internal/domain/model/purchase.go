package model

import "time"

// Purchase is an append-only history record handed to the purchase-history
// collaborator. This core only writes it, never reads it back.
type Purchase struct {
	ID          string // UUID
	UserID      string
	Amount      int64
	Provider    Provider
	Type        string // "subscription" | "admin_grant"
	Description string
	CreatedAt   time.Time
}
