package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match is a single fixture inside a prediction package.
type Match struct {
	HomeTeam string    `bson:"homeTeam" json:"homeTeam"`
	AwayTeam string    `bson:"awayTeam" json:"awayTeam"`
	League   string    `bson:"league,omitempty" json:"league,omitempty"`
	Tip      string    `bson:"tip" json:"tip,omitempty"`
	KickOff  time.Time `bson:"kickOff,omitempty" json:"kickOff,omitempty"`
}

// Prediction represents a purchasable package of match tips.
type Prediction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Type        string             `bson:"type" json:"type"` // daily, weekend, vip
	Price       float64            `bson:"price" json:"price"`
	Matches     []Match            `bson:"matches" json:"matches"`
	ExpiryDate  time.Time          `bson:"expiryDate" json:"expiryDate"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
