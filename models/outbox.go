package models

import (
	"time"

	"github.com/nexweave/vendordesk_backend/config"
)

// NotificationRecord is the durable outbox row behind the fire-and-forget
// notification/activity sink. Rows are written best-effort after a document
// write commits and published asynchronously by the outbox dispatcher.
type NotificationRecord struct {
	ID            int       `gorm:"primary_key" json:"id"`
	VendorId      string    `gorm:"index;not null" json:"vendor_id"`
	Event         string    `gorm:"size:100;not null" json:"event"`
	ReferenceType string    `gorm:"size:50;not null" json:"reference_type"`
	ReferenceId   string    `gorm:"size:64;index;not null" json:"reference_id"`
	OccurredAt    time.Time `gorm:"not null" json:"occurred_at"`
	Payload       []byte    `gorm:"type:mediumblob" json:"payload"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:PENDING" json:"publish_status"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	NextAttemptAt    *time.Time `gorm:"index" json:"next_attempt_at"`
	LockedAt         *time.Time `json:"locked_at"`
	LockedBy         *string    `gorm:"size:64" json:"locked_by"`
	PublishedAt      *time.Time `json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:64" json:"pub_sub_message_id"`

	CorrelationId string    `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToNotificationMessage(rec NotificationRecord) config.NotificationMessage {
	return config.NotificationMessage{
		ID:            rec.ID,
		VendorId:      rec.VendorId,
		Event:         rec.Event,
		ReferenceType: rec.ReferenceType,
		ReferenceId:   rec.ReferenceId,
		OccurredAt:    rec.OccurredAt,
		Payload:       rec.Payload,
		CorrelationId: rec.CorrelationId,
	}
}
