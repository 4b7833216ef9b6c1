// internal/models/notification.go
package models

import (
	"fmt"
	"strings"
	"time"
)

type NotificationKind string

const (
	KindProjectCreated NotificationKind = "project_created"
	KindProjectUpdated NotificationKind = "project_updated"
	KindProjectDeleted NotificationKind = "project_deleted"
	KindEventCreated   NotificationKind = "event_created"
	KindEventUpdated   NotificationKind = "event_updated"
	KindEventCancelled NotificationKind = "event_cancelled"
	KindFileUploaded   NotificationKind = "file_uploaded"
	KindFileUpdated    NotificationKind = "file_updated"
	KindWikiCreated    NotificationKind = "wiki_created"
	KindWikiUpdated    NotificationKind = "wiki_updated"
	KindTaskAssigned   NotificationKind = "task_assigned"
	KindTaskCompleted  NotificationKind = "task_completed"
	KindReminder       NotificationKind = "reminder"
	KindSystem         NotificationKind = "system"
)

// AllKinds lists every notification kind in declaration order.
var AllKinds = []NotificationKind{
	KindProjectCreated, KindProjectUpdated, KindProjectDeleted,
	KindEventCreated, KindEventUpdated, KindEventCancelled,
	KindFileUploaded, KindFileUpdated,
	KindWikiCreated, KindWikiUpdated,
	KindTaskAssigned, KindTaskCompleted,
	KindReminder, KindSystem,
}

// ParseKind maps a wire value such as "project_created" to its kind.
func ParseKind(s string) (NotificationKind, error) {
	v := NotificationKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllKinds {
		if k == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown notification kind: %q", s)
}

// Priority is ordered: LOW < MEDIUM < HIGH < URGENT.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = [...]string{"low", "medium", "high", "urgent"}

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityUrgent {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "", "medium", "normal":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return PriorityMedium, fmt.Errorf("unknown priority: %q", s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if p < PriorityLow || p > PriorityUrgent {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"

	// ChannelBoth is request shorthand for in_app + email; it never appears on an outcome.
	ChannelBoth Channel = "both"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelInApp, ChannelEmail, ChannelBoth:
		return c, nil
	}
	return "", fmt.Errorf("unknown channel: %q", s)
}

// ExpandChannels resolves the "both" shorthand, drops duplicates and unknown
// values, and returns the delivery channels in canonical order.
func ExpandChannels(channels ...Channel) []Channel {
	var inApp, email bool
	for _, c := range channels {
		switch c {
		case ChannelInApp:
			inApp = true
		case ChannelEmail:
			email = true
		case ChannelBoth:
			inApp, email = true, true
		}
	}
	out := make([]Channel, 0, 2)
	if inApp {
		out = append(out, ChannelInApp)
	}
	if email {
		out = append(out, ChannelEmail)
	}
	return out
}

// NotificationRequest is the unit of work handed to the coordinator.
// It is passed by value and never retained across calls.
type NotificationRequest struct {
	ID          string                 `json:"id"`
	RecipientID int64                  `json:"recipientId"`
	Kind        NotificationKind       `json:"kind"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Priority    Priority               `json:"priority"`
	Channels    []Channel              `json:"channels"`
	Locale      string                 `json:"locale,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// InAppNotification is the envelope pushed to connected clients.
type InAppNotification struct {
	Type      string                 `json:"type"` // always "notification"
	ID        string                 `json:"id"`
	Kind      NotificationKind       `json:"kind"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Priority  Priority               `json:"priority"`
	Timestamp string                 `json:"timestamp"` // ISO 8601
	Data      map[string]interface{} `json:"data"`
}

const InAppMessageType = "notification"
