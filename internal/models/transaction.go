package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionStatus is the lifecycle state of a purchase attempt.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction represents one purchase attempt for a prediction package.
// A transaction is created pending by the initiation path and moved to
// exactly one terminal status by the callback reconciler. Terminal
// transactions are never mutated again.
type Transaction struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	PredictionID      primitive.ObjectID `bson:"predictionId" json:"predictionId"`
	Amount            float64            `bson:"amount" json:"amount"`
	PhoneNumber       string             `bson:"phoneNumber" json:"phoneNumber"`
	MerchantRequestID string             `bson:"merchantRequestId,omitempty" json:"merchantRequestId,omitempty"`
	CheckoutRequestID string             `bson:"checkoutRequestId,omitempty" json:"checkoutRequestId,omitempty"`
	MpesaReceipt      string             `bson:"mpesaReceipt,omitempty" json:"mpesaReceipt,omitempty"`
	PaidAmount        float64            `bson:"paidAmount,omitempty" json:"paidAmount,omitempty"`
	PayerPhone        string             `bson:"payerPhone,omitempty" json:"payerPhone,omitempty"`
	SettledAt         *time.Time         `bson:"settledAt,omitempty" json:"settledAt,omitempty"`
	Status            TransactionStatus  `bson:"status" json:"status"`
	FailureReason     string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	CompletedAt       *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Terminal reports whether the transaction has reached a final status.
func (t *Transaction) Terminal() bool {
	return t.Status == TransactionCompleted || t.Status == TransactionFailed
}
