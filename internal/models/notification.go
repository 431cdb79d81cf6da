package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification records one SMS delivery attempt for purchased content.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MSISDN        string             `bson:"msisdn" json:"msisdn"`
	Content       string             `bson:"content" json:"content"`
	Type          string             `bson:"type" json:"type"`     // PURCHASE
	Status        string             `bson:"status" json:"status"` // SENT, FAILED
	MessageID     string             `bson:"messageId,omitempty" json:"messageId,omitempty"`
	EntitlementID primitive.ObjectID `bson:"entitlementId,omitempty" json:"entitlementId,omitempty"`
	SentDate      time.Time          `bson:"sentDate" json:"sentDate"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

const (
	NotificationTypePurchase = "PURCHASE"

	NotificationStatusSent   = "SENT"
	NotificationStatusFailed = "FAILED"
)
