package models

import "time"

type DeliveryStatus string

const (
	StatusDelivered     DeliveryStatus = "delivered"
	StatusFailed        DeliveryStatus = "failed"
	StatusNotConfigured DeliveryStatus = "not_configured"
)

type FailureCause string

const (
	CauseNone             FailureCause = ""
	CauseTransport        FailureCause = "transport_error"
	CauseInvalidRecipient FailureCause = "invalid_recipient"
	CauseRendering        FailureCause = "rendering_error"
	CauseLookup           FailureCause = "lookup_error"
)

// DeliveryOutcome is the result of one (recipient, channel) delivery attempt.
type DeliveryOutcome struct {
	NotificationID string           `json:"notificationId"`
	RecipientID    int64            `json:"recipientId"`
	Channel        Channel          `json:"channel"`
	Kind           NotificationKind `json:"kind"`
	Status         DeliveryStatus   `json:"status"`
	Cause          FailureCause     `json:"cause,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Err            error            `json:"-"`
	Duration       time.Duration    `json:"durationNs"`
}

func (o DeliveryOutcome) Delivered() bool { return o.Status == StatusDelivered }

// Outcomes is the aggregate of one batch, in no particular order.
type Outcomes []DeliveryOutcome

func (os Outcomes) Count(status DeliveryStatus) int {
	n := 0
	for _, o := range os {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (os Outcomes) Failed() Outcomes {
	return os.filter(func(o DeliveryOutcome) bool { return o.Status == StatusFailed })
}

func (os Outcomes) Delivered() Outcomes {
	return os.filter(func(o DeliveryOutcome) bool { return o.Status == StatusDelivered })
}

func (os Outcomes) ForRecipient(id int64) Outcomes {
	return os.filter(func(o DeliveryOutcome) bool { return o.RecipientID == id })
}

// Find returns the outcome for one (recipient, channel) pair.
func (os Outcomes) Find(recipientID int64, channel Channel) (DeliveryOutcome, bool) {
	for _, o := range os {
		if o.RecipientID == recipientID && o.Channel == channel {
			return o, true
		}
	}
	return DeliveryOutcome{}, false
}

func (os Outcomes) filter(keep func(DeliveryOutcome) bool) Outcomes {
	var out Outcomes
	for _, o := range os {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}
