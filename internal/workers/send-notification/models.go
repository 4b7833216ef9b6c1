package sendnotification

import "portal-notifier/internal/models"

// Input is the job variable document. Either kind or domain+category selects
// the notification kind; an unknown category resolves to "system".
type Input struct {
	RecipientIDs []int64                `json:"recipientIds"`
	Kind         string                 `json:"kind,omitempty"`
	Domain       string                 `json:"domain,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Title        string                 `json:"title,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	Channels     []string               `json:"channels,omitempty"`
	Locale       string                 `json:"locale,omitempty"`
}

type Output struct {
	NotificationID string          `json:"notificationId"`
	Status         string          `json:"status"`
	Delivered      int             `json:"delivered"`
	Failed         int             `json:"failed"`
	NotConfigured  int             `json:"notConfigured"`
	Outcomes       models.Outcomes `json:"outcomes"`
	SentAt         string          `json:"sentAt"` // ISO 8601
}

const (
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)
