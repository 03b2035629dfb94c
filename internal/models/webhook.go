package models

import (
	"encoding/json"
	"time"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryRetrying  DeliveryStatus = "retrying"
)

// WebhookConfig registers a group endpoint that receives interview results.
type WebhookConfig struct {
	ID        string    `json:"id" db:"id"`
	GroupID   string    `json:"groupId" db:"group_id"`
	URL       string    `json:"url" db:"url"`
	Secret    string    `json:"-" db:"secret"`
	Events    []string  `json:"events" db:"events"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Subscribes reports whether the config wants event. An empty list means all events.
func (c *WebhookConfig) Subscribes(event string) bool {
	if len(c.Events) == 0 {
		return true
	}
	for _, e := range c.Events {
		if e == event {
			return true
		}
	}
	return false
}

type WebhookDelivery struct {
	ID              string          `json:"id" db:"id"`
	WebhookConfigID string          `json:"webhookConfigId" db:"webhook_config_id"`
	InterviewID     string          `json:"interviewId" db:"interview_id"`
	EventType       string          `json:"eventType" db:"event_type"`
	Payload         json.RawMessage `json:"payload" db:"payload"`
	Status          DeliveryStatus  `json:"status" db:"status"`
	Attempts        int             `json:"attempts" db:"attempts"`
	NextRetryAt     *time.Time      `json:"nextRetryAt,omitempty" db:"next_retry_at"`
	LastError       string          `json:"lastError,omitempty" db:"last_error"`
	ResponseStatus  int             `json:"responseStatus,omitempty" db:"response_status"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// DueDelivery joins a delivery with the endpoint it targets.
type DueDelivery struct {
	Delivery WebhookDelivery
	Config   WebhookConfig
}
