package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/internal/repositories"
	"github.com/sokatips/mpesa-backend/internal/utils"
	"github.com/sokatips/mpesa-backend/pkg/auditlog"
	"github.com/sokatips/mpesa-backend/pkg/mpesa"
	"github.com/sokatips/mpesa-backend/pkg/smsgateway"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PaymentServiceImpl implements PaymentService
var _ PaymentService = (*PaymentServiceImpl)(nil)

// errLostCompletionRace marks a CAS loss inside the atomic completion unit:
// another delivery of the same callback already completed the transaction.
var errLostCompletionRace = errors.New("transaction already terminal")

// PaymentServiceImpl implements purchase initiation and callback
// reconciliation. All writes to transactions and entitlements in the system
// go through this service.
type PaymentServiceImpl struct {
	transactionRepo  repositories.TransactionRepository
	entitlementRepo  repositories.EntitlementRepository
	predictionRepo   repositories.PredictionRepository
	userRepo         repositories.UserRepository
	notificationRepo repositories.NotificationRepository
	runner           repositories.TxnRunner
	gateway          mpesa.Gateway
	sms              smsgateway.Gateway
	audit            AuditLog
	siteName         string
	pushTimeout      time.Duration
	smsTimeout       time.Duration
}

// NewPaymentService creates a new PaymentServiceImpl
func NewPaymentService(
	transactionRepo repositories.TransactionRepository,
	entitlementRepo repositories.EntitlementRepository,
	predictionRepo repositories.PredictionRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
	runner repositories.TxnRunner,
	gateway mpesa.Gateway,
	sms smsgateway.Gateway,
	audit AuditLog,
	siteName string,
	pushTimeout, smsTimeout time.Duration,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		transactionRepo:  transactionRepo,
		entitlementRepo:  entitlementRepo,
		predictionRepo:   predictionRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		runner:           runner,
		gateway:          gateway,
		sms:              sms,
		audit:            audit,
		siteName:         siteName,
		pushTimeout:      pushTimeout,
		smsTimeout:       smsTimeout,
	}
}

// InitiatePurchase creates a pending transaction and triggers the STK push.
// The price comes from the prediction, never from the caller. At most one
// pending transaction may exist per (user, prediction); the partial unique
// index closes the race a pre-check alone would leave open.
func (s *PaymentServiceImpl) InitiatePurchase(ctx context.Context, userID, predictionID primitive.ObjectID, phone string) (*models.Transaction, error) {
	if !utils.ValidateMpesaPhone(phone) {
		return nil, ErrInvalidPhone
	}

	prediction, err := s.predictionRepo.FindByID(ctx, predictionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("load prediction: %w", err)
	}

	// Already entitled: purchase is a no-op, not a retryable failure.
	if _, err := s.entitlementRepo.FindByUserAndPrediction(ctx, userID, predictionID); err == nil {
		return nil, ErrAlreadyOwned
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("check entitlement: %w", err)
	}

	if _, err := s.transactionRepo.FindPendingByUserAndPrediction(ctx, userID, predictionID); err == nil {
		return nil, ErrPurchaseInProgress
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("check pending transaction: %w", err)
	}

	txn := &models.Transaction{
		UserID:       userID,
		PredictionID: predictionID,
		Amount:       prediction.Price,
		PhoneNumber:  phone,
		Status:       models.TransactionPending,
	}
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// Lost the insert race against a concurrent duplicate request.
			return nil, ErrPurchaseInProgress
		}
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()

	accountRef := "PRED" + txn.ID.Hex()
	resp, err := s.gateway.STKPush(pushCtx, phone, prediction.Price, accountRef, "Payment for "+prediction.Title)
	if err != nil {
		// The push never reached the provider; fail the transaction now so
		// the (user, prediction) slot frees up for a fresh attempt.
		now := time.Now()
		if _, markErr := s.transactionRepo.MarkFailed(ctx, txn.ID, "stk push initiation failed", now); markErr != nil {
			slog.Error("Failed to mark transaction failed after push error",
				"error", markErr, "transactionId", txn.ID.Hex(), "userId", userID.Hex())
		}
		s.auditTransition(txn.ID.Hex(), models.TransactionPending, models.TransactionFailed, "stk push initiation failed")
		slog.Warn("STK push initiation failed",
			"error", err, "transactionId", txn.ID.Hex(), "userId", userID.Hex(), "predictionId", predictionID.Hex())
		return nil, fmt.Errorf("%w: %v", ErrGatewayInitiation, err)
	}

	if err := s.transactionRepo.AttachCheckoutRequestID(ctx, txn.ID, resp.MerchantRequestID, resp.CheckoutRequestID); err != nil {
		// The push went out but the tracking reference was not persisted, so
		// the eventual callback cannot match this transaction and the pending
		// slot stays occupied. Needs manual reconciliation from this record.
		slog.Error("Failed to attach checkout reference, transaction stranded pending",
			"error", err, "transactionId", txn.ID.Hex(),
			"checkoutRequestId", resp.CheckoutRequestID, "merchantRequestId", resp.MerchantRequestID,
			"userId", userID.Hex(), "predictionId", predictionID.Hex())
		return nil, fmt.Errorf("attach checkout reference: %w", err)
	}
	txn.MerchantRequestID = resp.MerchantRequestID
	txn.CheckoutRequestID = resp.CheckoutRequestID

	slog.Info("Purchase initiated",
		"transactionId", txn.ID.Hex(), "checkoutRequestId", resp.CheckoutRequestID,
		"userId", userID.Hex(), "predictionId", predictionID.Hex(), "amount", prediction.Price)
	return txn, nil
}

// ProcessCallback reconciles one inbound provider callback. Deliveries are
// at-least-once, so the whole path is safe to run repeatedly: a duplicate
// delivery is acknowledged without re-executing any side effect. ResultCode 0
// in the response means accepted, do not redeliver; 1 is returned only when
// redelivery could plausibly succeed.
func (s *PaymentServiceImpl) ProcessCallback(ctx context.Context, callback *models.STKCallback) models.CallbackResponse {
	ref := callback.CheckoutRequestID

	txn, err := s.transactionRepo.FindByCheckoutRequestID(ctx, ref)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Unknown reference. Possibly a race with initiation attaching
			// the reference, so permit redelivery.
			slog.Warn("Callback for unknown checkout reference", "checkoutRequestId", ref)
			return models.CallbackResponse{ResultCode: 1, ResultDesc: "Transaction not found"}
		}
		slog.Error("Callback lookup failed", "error", err, "checkoutRequestId", ref)
		return models.CallbackResponse{ResultCode: 1, ResultDesc: "Failed to process payment"}
	}

	// Duplicate delivery of an already reconciled event: acknowledge without
	// side effects.
	if txn.Terminal() {
		slog.Info("Duplicate callback for terminal transaction",
			"checkoutRequestId", ref, "status", txn.Status)
		return models.CallbackResponse{ResultCode: 0, ResultDesc: "Already processed"}
	}

	if callback.ResultCode != 0 {
		return s.failPending(ctx, txn, fmt.Sprintf("provider result %d: %s", callback.ResultCode, callback.ResultDesc),
			"Payment failed or was cancelled by user")
	}

	details := callback.PaymentDetails()
	if details.Amount < txn.Amount {
		// Provider/client disagreement, not a user cancellation. The
		// transaction still terminates, but this gets flagged loudly.
		slog.Error("Amount mismatch on payment callback",
			"checkoutRequestId", ref, "expected", txn.Amount, "reported", details.Amount,
			"userId", txn.UserID.Hex(), "predictionId", txn.PredictionID.Hex())
		return s.failPending(ctx, txn, fmt.Sprintf("amount mismatch: expected %.2f, reported %.2f", txn.Amount, details.Amount),
			"Payment amount does not match")
	}
	if details.Amount > txn.Amount {
		slog.Warn("Overpayment accepted",
			"checkoutRequestId", ref, "expected", txn.Amount, "reported", details.Amount)
	}

	// Atomic completion: status flip and entitlement creation commit or
	// abort together. A transaction must never read completed without its
	// entitlement existing.
	completedAt := time.Now()
	ent := &models.Entitlement{
		ID:            primitive.NewObjectID(),
		UserID:        txn.UserID,
		PredictionID:  txn.PredictionID,
		TransactionID: txn.ID,
		GrantedAt:     completedAt,
	}
	err = s.runner.WithinTransaction(ctx, func(txCtx context.Context) error {
		won, err := s.transactionRepo.MarkCompleted(txCtx, txn.ID, details, completedAt)
		if err != nil {
			return err
		}
		if !won {
			return errLostCompletionRace
		}
		return s.grantAccess(txCtx, ent)
	})
	if err != nil {
		if errors.Is(err, errLostCompletionRace) || errors.Is(err, repositories.ErrDuplicate) {
			slog.Info("Concurrent callback already completed transaction", "checkoutRequestId", ref)
			return models.CallbackResponse{ResultCode: 0, ResultDesc: "Already processed"}
		}
		// Nothing was applied; the transaction is still pending, so a
		// redelivered callback can retry safely.
		slog.Error("Atomic completion failed",
			"error", err, "checkoutRequestId", ref, "transactionId", txn.ID.Hex(),
			"userId", txn.UserID.Hex(), "predictionId", txn.PredictionID.Hex())
		return models.CallbackResponse{ResultCode: 1, ResultDesc: "Failed to process payment"}
	}

	s.auditTransition(ref, models.TransactionPending, models.TransactionCompleted, "receipt "+details.Receipt)
	slog.Info("Payment reconciled",
		"checkoutRequestId", ref, "receipt", details.Receipt, "amount", details.Amount,
		"userId", txn.UserID.Hex(), "predictionId", txn.PredictionID.Hex())

	// Best-effort notification, outside the atomic unit. Access was paid for
	// and stands regardless of delivery.
	s.sendPurchasedContent(ctx, txn, ent)

	return models.CallbackResponse{ResultCode: 0, ResultDesc: "Payment processed successfully"}
}

// GetUserTransactions returns a user's most recent purchase attempts.
func (s *PaymentServiceImpl) GetUserTransactions(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error) {
	return s.transactionRepo.FindByUserID(ctx, userID, limit)
}

// grantAccess creates the entitlement row inside the caller's transaction.
// It is deliberately unexported: access is only ever granted from within the
// atomic completion step, after amount verification.
func (s *PaymentServiceImpl) grantAccess(ctx context.Context, ent *models.Entitlement) error {
	return s.entitlementRepo.Create(ctx, ent)
}

// failPending moves a pending transaction to failed and acknowledges the
// callback. Losing the CAS means another delivery got there first, which is
// the same idempotent outcome.
func (s *PaymentServiceImpl) failPending(ctx context.Context, txn *models.Transaction, reason, resultDesc string) models.CallbackResponse {
	won, err := s.transactionRepo.MarkFailed(ctx, txn.ID, reason, time.Now())
	if err != nil {
		slog.Error("Failed to mark transaction failed",
			"error", err, "checkoutRequestId", txn.CheckoutRequestID, "transactionId", txn.ID.Hex())
		return models.CallbackResponse{ResultCode: 1, ResultDesc: "Failed to process payment"}
	}
	if !won {
		return models.CallbackResponse{ResultCode: 0, ResultDesc: "Already processed"}
	}
	s.auditTransition(txn.CheckoutRequestID, models.TransactionPending, models.TransactionFailed, reason)
	slog.Info("Transaction failed",
		"checkoutRequestId", txn.CheckoutRequestID, "reason", reason,
		"userId", txn.UserID.Hex(), "predictionId", txn.PredictionID.Hex())
	return models.CallbackResponse{ResultCode: 0, ResultDesc: resultDesc}
}

// sendPurchasedContent formats the prediction package and sends it to the
// phone number on file for the user (not necessarily the payer's phone).
// Failures are recorded and logged, never propagated.
func (s *PaymentServiceImpl) sendPurchasedContent(ctx context.Context, txn *models.Transaction, ent *models.Entitlement) {
	user, err := s.userRepo.FindByID(ctx, txn.UserID)
	if err != nil {
		slog.Error("Cannot send purchase SMS, user lookup failed",
			"error", err, "userId", txn.UserID.Hex(), "transactionId", txn.ID.Hex())
		return
	}
	prediction, err := s.predictionRepo.FindByID(ctx, txn.PredictionID)
	if err != nil {
		slog.Error("Cannot send purchase SMS, prediction lookup failed",
			"error", err, "predictionId", txn.PredictionID.Hex(), "transactionId", txn.ID.Hex())
		return
	}

	message := utils.FormatPredictionMessage(prediction, s.siteName)

	smsCtx, cancel := context.WithTimeout(ctx, s.smsTimeout)
	defer cancel()

	notification := &models.Notification{
		MSISDN:        user.Phone,
		Content:       message,
		Type:          models.NotificationTypePurchase,
		EntitlementID: ent.ID,
		SentDate:      time.Now(),
	}

	result, err := s.sms.SendSMS(smsCtx, user.Phone, message)
	if err != nil || !result.Success {
		notification.Status = models.NotificationStatusFailed
		if result != nil {
			notification.MessageID = result.MessageID
		}
		slog.Warn("Purchase SMS dispatch failed",
			"error", err, "msisdn", user.Phone, "transactionId", txn.ID.Hex())
	} else {
		notification.Status = models.NotificationStatusSent
		notification.MessageID = result.MessageID
		if err := s.entitlementRepo.MarkSMSSent(ctx, ent.ID); err != nil {
			slog.Error("Failed to set smsSent flag",
				"error", err, "entitlementId", ent.ID.Hex())
		}
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		slog.Error("Failed to record notification attempt",
			"error", err, "msisdn", user.Phone, "transactionId", txn.ID.Hex())
	}
}

// auditTransition appends a terminal transition to the forensic log. Audit
// failures are logged and swallowed so they can never gate reconciliation.
func (s *PaymentServiceImpl) auditTransition(ref string, from, to models.TransactionStatus, note string) {
	if s.audit == nil {
		return
	}
	err := s.audit.AppendTransition(auditlog.Transition{
		Reference: ref,
		From:      string(from),
		To:        string(to),
		Note:      note,
		At:        time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Audit transition append failed", "error", err, "checkoutRequestId", ref)
	}
}
