package mongodb

import (
	"context"

	"github.com/sokatips/mpesa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// TxnRunner implements repositories.TxnRunner on top of MongoDB sessions.
// Repository calls made with the session context join the same multi-document
// transaction, so the status flip and the entitlement insert commit or abort
// together.
type TxnRunner struct {
	client *mongo.Client
}

// NewTxnRunner creates a new TxnRunner
func NewTxnRunner(client *mongo.Client) repositories.TxnRunner {
	return &TxnRunner{client: client}
}

// WithinTransaction runs fn inside a session transaction.
func (r *TxnRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
