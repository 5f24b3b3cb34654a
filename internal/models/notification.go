package models

import (
	"fmt"
	"time"
)

// NotificationType classifies where a notification came from
type NotificationType string

// Notification type constants
const (
	TypeMarketChange       NotificationType = "MARKET_CHANGE"
	TypePriceAlert         NotificationType = "PRICE_ALERT"
	TypeVolatilityAlert    NotificationType = "VOLATILITY_ALERT"
	TypeSystemNotification NotificationType = "SYSTEM_NOTIFICATION"
)

// Priority is the urgency of a notification
type Priority string

// Priority constants
const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Preference is a subscriber's appetite for notification volume
type Preference string

// Preference constants
const (
	PreferenceAll           Preference = "ALL"
	PreferenceImportantOnly Preference = "IMPORTANT"
	PreferenceNone          Preference = "NONE"
)

// UnsavedID marks a notification that has not been persisted yet
const UnsavedID = -1

// ParsePriority validates a stored or user supplied priority
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", NewInvalidArgument("priority", fmt.Sprintf("unknown value %q", s))
}

// ParsePreference validates a stored or user supplied preference
func ParsePreference(s string) (Preference, error) {
	switch p := Preference(s); p {
	case PreferenceAll, PreferenceImportantOnly, PreferenceNone:
		return p, nil
	}
	return "", NewInvalidArgument("preference", fmt.Sprintf("unknown value %q", s))
}

// ParseNotificationType validates a stored notification type
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case TypeMarketChange, TypePriceAlert, TypeVolatilityAlert, TypeSystemNotification:
		return t, nil
	}
	return "", NewInvalidArgument("type", fmt.Sprintf("unknown value %q", s))
}

// Allows reports whether a notification of the given priority passes this preference
func (p Preference) Allows(priority Priority) bool {
	switch p {
	case PreferenceAll:
		return true
	case PreferenceImportantOnly:
		return priority == PriorityHigh || priority == PriorityMedium
	default:
		return false
	}
}

// Subscriber is a recipient of notifications
type Subscriber struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Preference Preference `json:"preference"`
}

// Notification is a persisted message addressed to one subscriber.
// Read only ever moves from false to true.
type Notification struct {
	ID           int              `json:"id"`
	SubscriberID int              `json:"subscriber_id"`
	Symbol       string           `json:"symbol,omitempty"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	Type         NotificationType `json:"type"`
	Priority     Priority         `json:"priority"`
	Timestamp    time.Time        `json:"timestamp"`
	Read         bool             `json:"read"`
}

// NotificationEvent is the message published to Kafka and Redis for each delivered notification
type NotificationEvent struct {
	EventType    string        `json:"event_type"`
	Notification *Notification `json:"notification"`
	Timestamp    time.Time     `json:"timestamp"`
}
