package model

import "time"

// Subscription is the per-user paid-plan state. It is created implicitly on first
// activation and mutated only by the activation engine (on payment success) and the
// batch processor (on lapse). A lapsed PremiumExpiresAt does not flip IsPremium by
// itself; the batch processor resolves it.
type Subscription struct {
	UserID              string
	IsPremium           bool
	PremiumExpiresAt    *time.Time
	RenewalReminderSent bool
	UpdatedAt           time.Time
}

// ActiveAt reports whether the subscription grants premium access at `now`.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.IsPremium && s.PremiumExpiresAt != nil && now.Before(*s.PremiumExpiresAt)
}
