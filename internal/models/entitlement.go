package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entitlement records that a user has paid for and may view a prediction
// package. At most one entitlement exists per (user, prediction) pair, ever.
// It is created only inside the reconciler's atomic completion step and the
// originating transaction id is immutable evidence of provenance. Only the
// SMSSent flag is ever updated afterwards.
type Entitlement struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	PredictionID  primitive.ObjectID `bson:"predictionId" json:"predictionId"`
	TransactionID primitive.ObjectID `bson:"transactionId" json:"transactionId"`
	GrantedAt     time.Time          `bson:"grantedAt" json:"grantedAt"`
	SMSSent       bool               `bson:"smsSent" json:"smsSent"`
}
