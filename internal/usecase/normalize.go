package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"chat-billing/internal/domain/model"
)

// Provider payloads disagree on field names; each logical field is extracted by
// scanning a fixed, ordered alias list and taking the first present, non-empty
// value. Order matters and is part of the contract.
var (
	linkIDAliases = []string{"order_id", "orderId", "orderNumber", "transaction_id", "link_id", "linkId"}
	statusAliases = []string{"status", "payment_status", "result"}
)

// successTokens is the closed set of status values that count as a paid event,
// compared case-insensitively.
var successTokens = map[string]struct{}{
	"success": {}, "completed": {}, "paid": {}, "approved": {}, "1": {}, "ok": {},
}

// Normalize maps a raw provider callback body to a canonical event. It is total:
// malformed JSON or missing aliases yield an event with empty fields, whose
// disposition (ignore) is decided by the idempotency guard, not here.
func Normalize(raw []byte) *model.WebhookEvent {
	sum := sha256.Sum256(raw)
	ev := &model.WebhookEvent{
		Payload:    raw,
		DedupHash:  hex.EncodeToString(sum[:]),
		ReceivedAt: time.Now(),
		Status:     model.EventStatusReceived,
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ev
	}

	ev.LinkID = firstAlias(fields, linkIDAliases)
	ev.StatusToken = firstAlias(fields, statusAliases)
	_, ev.Success = successTokens[strings.ToLower(ev.StatusToken)]
	return ev
}

func firstAlias(fields map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			// encoding/json decodes numbers as float64; provider numeric ids and
			// "status": 1 both arrive this way.
			s = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			continue
		}
		if s != "" {
			return s
		}
	}
	return ""
}
