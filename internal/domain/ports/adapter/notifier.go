package adapter

import "context"

type NotificationKind string

const (
	NotifyRenewalReminder     NotificationKind = "renewal_reminder"
	NotifyWithdrawalCompleted NotificationKind = "withdrawal_completed"
	NotifyActivationCode      NotificationKind = "activation_code"
)

// Notifier delivers fire-and-forget user notifications through the external
// notification collaborator. A delivery failure must never roll back the core
// transaction that triggered it; callers dispatch after commit and only log
// errors.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind NotificationKind, payload map[string]string) error
}
