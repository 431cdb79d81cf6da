package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/internal/repositories"
	"github.com/sokatips/mpesa-backend/pkg/auditlog"
	"github.com/sokatips/mpesa-backend/pkg/mpesa"
	"github.com/sokatips/mpesa-backend/pkg/smsgateway"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeTransactionRepo struct {
	mu        sync.Mutex
	txns      map[primitive.ObjectID]*models.Transaction
	createErr error
	markErr   error
	attachErr error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{txns: map[primitive.ObjectID]*models.Transaction{}}
}

func (f *fakeTransactionRepo) Create(ctx context.Context, txn *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.txns {
		if existing.UserID == txn.UserID && existing.PredictionID == txn.PredictionID &&
			existing.Status == models.TransactionPending {
			return repositories.ErrDuplicate
		}
	}
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	txn.CreatedAt = time.Now()
	cp := *txn
	f.txns[txn.ID] = &cp
	return nil
}

func (f *fakeTransactionRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeTransactionRepo) FindByCheckoutRequestID(ctx context.Context, ref string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.CheckoutRequestID == ref && ref != "" {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeTransactionRepo) FindPendingByUserAndPrediction(ctx context.Context, userID, predictionID primitive.ObjectID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.UserID == userID && txn.PredictionID == predictionID && txn.Status == models.TransactionPending {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeTransactionRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Transaction
	for _, txn := range f.txns {
		if txn.UserID == userID {
			cp := *txn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTransactionRepo) AttachCheckoutRequestID(ctx context.Context, id primitive.ObjectID, merchantRequestID, checkoutRequestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	txn, ok := f.txns[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	txn.MerchantRequestID = merchantRequestID
	txn.CheckoutRequestID = checkoutRequestID
	return nil
}

func (f *fakeTransactionRepo) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	txn, ok := f.txns[id]
	if !ok || txn.Status != models.TransactionPending {
		return false, nil
	}
	txn.Status = models.TransactionFailed
	txn.FailureReason = reason
	txn.CompletedAt = &at
	return true, nil
}

func (f *fakeTransactionRepo) MarkCompleted(ctx context.Context, id primitive.ObjectID, details models.PaymentDetails, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	txn, ok := f.txns[id]
	if !ok || txn.Status != models.TransactionPending {
		return false, nil
	}
	txn.Status = models.TransactionCompleted
	txn.MpesaReceipt = details.Receipt
	txn.PaidAmount = details.Amount
	txn.PayerPhone = details.PhoneNumber
	if !details.TransactionDate.IsZero() {
		settled := details.TransactionDate
		txn.SettledAt = &settled
	}
	txn.CompletedAt = &at
	return true, nil
}

type entitlementKey struct {
	user, prediction primitive.ObjectID
}

type fakeEntitlementRepo struct {
	mu        sync.Mutex
	ents      map[entitlementKey]*models.Entitlement
	createErr error
	creates   int
}

func newFakeEntitlementRepo() *fakeEntitlementRepo {
	return &fakeEntitlementRepo{ents: map[entitlementKey]*models.Entitlement{}}
}

func (f *fakeEntitlementRepo) Create(ctx context.Context, ent *models.Entitlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := entitlementKey{ent.UserID, ent.PredictionID}
	if _, exists := f.ents[key]; exists {
		return repositories.ErrDuplicate
	}
	f.creates++
	cp := *ent
	f.ents[key] = &cp
	return nil
}

func (f *fakeEntitlementRepo) FindByUserAndPrediction(ctx context.Context, userID, predictionID primitive.ObjectID) (*models.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ent, ok := f.ents[entitlementKey{userID, predictionID}]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *ent
	return &cp, nil
}

func (f *fakeEntitlementRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Entitlement
	for _, ent := range f.ents {
		if ent.UserID == userID {
			cp := *ent
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEntitlementRepo) MarkSMSSent(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ent := range f.ents {
		if ent.ID == id {
			ent.SMSSent = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

type fakePredictionRepo struct {
	preds map[primitive.ObjectID]*models.Prediction
}

func (f *fakePredictionRepo) Create(ctx context.Context, p *models.Prediction) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	f.preds[p.ID] = &cp
	return nil
}

func (f *fakePredictionRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prediction, error) {
	p, ok := f.preds[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	cp.Matches = append([]models.Match(nil), p.Matches...)
	return &cp, nil
}

func (f *fakePredictionRepo) FindAll(ctx context.Context, predictionType string, page, limit int) ([]*models.Prediction, error) {
	var out []*models.Prediction
	for _, p := range f.preds {
		cp := *p
		cp.Matches = append([]models.Match(nil), p.Matches...)
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePredictionRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.preds)), nil
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

// Create stores a copy, like the real repository which serializes the
// document at insert time. Later mutations of the caller's struct (the auth
// service scrubs the password hash before returning) must not reach the store.
func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	records []*models.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeNotificationRepo) FindByMSISDN(ctx context.Context, msisdn string, page, limit int) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, nil
}

// fakeRunner executes the closure directly; the real runner's transactional
// semantics are exercised against the CAS behavior of the fake repos.
type fakeRunner struct {
	err error
}

func (f *fakeRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type fakeMpesaGateway struct {
	pushes int
	err    error
}

func (f *fakeMpesaGateway) STKPush(ctx context.Context, phone string, amount float64, accountRef, description string) (*mpesa.STKPushResponse, error) {
	f.pushes++
	if f.err != nil {
		return nil, f.err
	}
	return &mpesa.STKPushResponse{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: "ws_CO_test_1",
		ResponseCode:      "0",
	}, nil
}

type fakeSMSGateway struct {
	mu    sync.Mutex
	sends int
	err   error
	fail  bool
}

func (f *fakeSMSGateway) SendSMS(ctx context.Context, msisdn, message string) (*smsgateway.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.err != nil {
		return nil, f.err
	}
	if f.fail {
		return &smsgateway.DeliveryResult{Success: false, Status: "Failed"}, nil
	}
	return &smsgateway.DeliveryResult{Success: true, MessageID: "msg-1", Status: "Success"}, nil
}

type fakeAuditLog struct {
	mu          sync.Mutex
	callbacks   [][]byte
	transitions []auditlog.Transition
}

func (f *fakeAuditLog) AppendCallback(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, payload)
	return nil
}

func (f *fakeAuditLog) AppendTransition(t auditlog.Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, t)
	return nil
}

type paymentFixture struct {
	svc          *PaymentServiceImpl
	txns         *fakeTransactionRepo
	ents         *fakeEntitlementRepo
	preds        *fakePredictionRepo
	users        *fakeUserRepo
	notes        *fakeNotificationRepo
	runner       *fakeRunner
	gateway      *fakeMpesaGateway
	sms          *fakeSMSGateway
	audit        *fakeAuditLog
	userID       primitive.ObjectID
	predictionID primitive.ObjectID
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	f := &paymentFixture{
		txns:    newFakeTransactionRepo(),
		ents:    newFakeEntitlementRepo(),
		preds:   &fakePredictionRepo{preds: map[primitive.ObjectID]*models.Prediction{}},
		users:   &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}},
		notes:   &fakeNotificationRepo{},
		runner:  &fakeRunner{},
		gateway: &fakeMpesaGateway{},
		sms:     &fakeSMSGateway{},
		audit:   &fakeAuditLog{},
	}

	user := &models.User{Username: "joe", Email: "joe@example.com", Phone: "254700000001"}
	require.NoError(t, f.users.Create(context.Background(), user))
	f.userID = user.ID

	prediction := &models.Prediction{
		Title: "Weekend Bankers",
		Type:  "weekend",
		Price: 100,
		Matches: []models.Match{
			{HomeTeam: "Gor Mahia", AwayTeam: "AFC Leopards", Tip: "1"},
			{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Tip: "Over 2.5"},
		},
	}
	require.NoError(t, f.preds.Create(context.Background(), prediction))
	f.predictionID = prediction.ID

	f.svc = NewPaymentService(
		f.txns, f.ents, f.preds, f.users, f.notes,
		f.runner, f.gateway, f.sms, f.audit,
		"SokaTips", time.Second, time.Second,
	)
	return f
}

func (f *paymentFixture) initiate(t *testing.T) *models.Transaction {
	t.Helper()
	txn, err := f.svc.InitiatePurchase(context.Background(), f.userID, f.predictionID, "254712345678")
	require.NoError(t, err)
	return txn
}

func successCallback(ref string, amount float64) *models.STKCallback {
	return &models.STKCallback{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: ref,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &models.CallbackMetadata{
			Item: []models.MetadataItem{
				{Name: "Amount", Value: amount},
				{Name: "MpesaReceiptNumber", Value: "RBK12XYZ99"},
				{Name: "TransactionDate", Value: float64(20240315174512)},
				{Name: "PhoneNumber", Value: float64(254712345678)},
			},
		},
	}
}

func TestInitiatePurchase(t *testing.T) {
	f := newPaymentFixture(t)

	txn := f.initiate(t)
	require.Equal(t, models.TransactionPending, txn.Status)
	require.Equal(t, "ws_CO_test_1", txn.CheckoutRequestID)
	require.Equal(t, 100.0, txn.Amount)
	require.Equal(t, 1, f.gateway.pushes)

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, "ws_CO_test_1", stored.CheckoutRequestID)
}

func TestInitiatePurchaseInvalidPhone(t *testing.T) {
	f := newPaymentFixture(t)

	for _, phone := range []string{"0712345678", "25471234567", "2547123456789", "+254712345678", ""} {
		_, err := f.svc.InitiatePurchase(context.Background(), f.userID, f.predictionID, phone)
		require.ErrorIs(t, err, ErrInvalidPhone, "phone %q", phone)
	}
	require.Equal(t, 0, f.gateway.pushes)
}

func TestInitiatePurchaseAlreadyOwned(t *testing.T) {
	f := newPaymentFixture(t)
	require.NoError(t, f.ents.Create(context.Background(), &models.Entitlement{
		ID:           primitive.NewObjectID(),
		UserID:       f.userID,
		PredictionID: f.predictionID,
	}))

	_, err := f.svc.InitiatePurchase(context.Background(), f.userID, f.predictionID, "254712345678")
	require.ErrorIs(t, err, ErrAlreadyOwned)
	require.Equal(t, 0, f.gateway.pushes)
}

func TestInitiatePurchaseWhilePending(t *testing.T) {
	f := newPaymentFixture(t)
	f.initiate(t)

	_, err := f.svc.InitiatePurchase(context.Background(), f.userID, f.predictionID, "254712345678")
	require.ErrorIs(t, err, ErrPurchaseInProgress)
	require.Equal(t, 1, f.gateway.pushes, "no second push may be sent")
}

func TestInitiatePurchaseGatewayFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.err = errors.New("connection timed out")

	_, err := f.svc.InitiatePurchase(context.Background(), f.userID, f.predictionID, "254712345678")
	require.ErrorIs(t, err, ErrGatewayInitiation)

	// The failed transaction must not block a fresh attempt.
	f.gateway.err = nil
	txn := f.initiate(t)
	require.Equal(t, models.TransactionPending, txn.Status)
	require.Equal(t, 2, f.gateway.pushes)
}

func TestInitiatePurchaseAttachReferenceFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.txns.attachErr = errors.New("write concern error")

	_, err := f.svc.InitiatePurchase(context.Background(), f.userID, f.predictionID, "254712345678")
	require.Error(t, err)
	require.Equal(t, 1, f.gateway.pushes, "the push already went out")

	// The transaction stays pending with no tracking reference, so the
	// eventual callback cannot match it; this is the stranded case flagged
	// for manual reconciliation.
	pending, err := f.txns.FindPendingByUserAndPrediction(context.Background(), f.userID, f.predictionID)
	require.NoError(t, err)
	require.Empty(t, pending.CheckoutRequestID)
}

func TestReconcileHappyPath(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	resp := f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 100))
	require.Equal(t, 0, resp.ResultCode)

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionCompleted, stored.Status)
	require.Equal(t, "RBK12XYZ99", stored.MpesaReceipt)
	require.Equal(t, 100.0, stored.PaidAmount)
	require.NotNil(t, stored.CompletedAt)
	// The provider-reported settlement time is kept alongside our own
	// reconciliation timestamp.
	require.NotNil(t, stored.SettledAt)
	require.Equal(t, time.Date(2024, 3, 15, 17, 45, 12, 0, time.UTC), *stored.SettledAt)

	ent, err := f.ents.FindByUserAndPrediction(context.Background(), f.userID, f.predictionID)
	require.NoError(t, err)
	require.Equal(t, txn.ID, ent.TransactionID)
	require.True(t, ent.SMSSent)

	require.Equal(t, 1, f.sms.sends)
	require.Len(t, f.notes.records, 1)
	require.Equal(t, models.NotificationStatusSent, f.notes.records[0].Status)
	// SMS goes to the phone on file, not the payer's phone.
	require.Equal(t, "254700000001", f.notes.records[0].MSISDN)
}

func TestReconcileUnderpayment(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	resp := f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 50))
	require.Equal(t, 0, resp.ResultCode)

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionFailed, stored.Status)

	_, err = f.ents.FindByUserAndPrediction(context.Background(), f.userID, f.predictionID)
	require.ErrorIs(t, err, mongo.ErrNoDocuments)
	require.Equal(t, 0, f.sms.sends)
}

func TestReconcileOverpaymentAccepted(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	resp := f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 150))
	require.Equal(t, 0, resp.ResultCode)

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionCompleted, stored.Status)
	require.Equal(t, 150.0, stored.PaidAmount)
}

func TestReconcileUserCancelled(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	resp := f.svc.ProcessCallback(context.Background(), &models.STKCallback{
		CheckoutRequestID: txn.CheckoutRequestID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	// Terminal business outcome: accepted, no redelivery wanted.
	require.Equal(t, 0, resp.ResultCode)

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionFailed, stored.Status)

	_, err = f.ents.FindByUserAndPrediction(context.Background(), f.userID, f.predictionID)
	require.ErrorIs(t, err, mongo.ErrNoDocuments)
	require.Equal(t, 0, f.sms.sends)
}

func TestReconcileDuplicateDelivery(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)
	cb := successCallback(txn.CheckoutRequestID, 100)

	first := f.svc.ProcessCallback(context.Background(), cb)
	second := f.svc.ProcessCallback(context.Background(), cb)

	require.Equal(t, 0, first.ResultCode)
	require.Equal(t, 0, second.ResultCode)
	require.Equal(t, 1, f.ents.creates, "exactly one entitlement")
	require.Equal(t, 1, f.sms.sends, "at most one notification attempt")
}

func TestReconcileUnknownReference(t *testing.T) {
	f := newPaymentFixture(t)

	resp := f.svc.ProcessCallback(context.Background(), successCallback("ws_CO_unknown", 100))
	require.Equal(t, 1, resp.ResultCode, "lookup miss may be a race, permit redelivery")
	require.Equal(t, 0, f.ents.creates)
}

func TestReconcileAtomicCompletionFailure(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	f.runner.err = errors.New("transaction aborted")
	resp := f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 100))
	require.Equal(t, 1, resp.ResultCode, "redelivery must be requested")

	// Neither side of the atomic unit may be applied.
	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionPending, stored.Status)
	require.Equal(t, 0, f.ents.creates)
	require.Equal(t, 0, f.sms.sends)

	// A redelivered callback completes normally once storage recovers.
	f.runner.err = nil
	resp = f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 100))
	require.Equal(t, 0, resp.ResultCode)
	require.Equal(t, 1, f.ents.creates)
}

func TestReconcileSMSFailureDoesNotRevertGrant(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)
	f.sms.err = errors.New("gateway unreachable")

	resp := f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 100))
	require.Equal(t, 0, resp.ResultCode, "ack must not depend on notification delivery")

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionCompleted, stored.Status)

	ent, err := f.ents.FindByUserAndPrediction(context.Background(), f.userID, f.predictionID)
	require.NoError(t, err)
	require.False(t, ent.SMSSent, "flag stays unset for later remediation")
	require.Len(t, f.notes.records, 1)
	require.Equal(t, models.NotificationStatusFailed, f.notes.records[0].Status)
}

func TestReconcileTerminalStateIsFinal(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	resp := f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 100))
	require.Equal(t, 0, resp.ResultCode)

	// A contradictory late delivery must not move a completed transaction.
	resp = f.svc.ProcessCallback(context.Background(), &models.STKCallback{
		CheckoutRequestID: txn.CheckoutRequestID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	require.Equal(t, 0, resp.ResultCode)

	stored, err := f.txns.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionCompleted, stored.Status)
}

func TestReconcileAuditsTerminalTransitions(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.initiate(t)

	f.svc.ProcessCallback(context.Background(), successCallback(txn.CheckoutRequestID, 100))

	require.Len(t, f.audit.transitions, 1)
	tr := f.audit.transitions[0]
	require.Equal(t, txn.CheckoutRequestID, tr.Reference)
	require.Equal(t, string(models.TransactionPending), tr.From)
	require.Equal(t, string(models.TransactionCompleted), tr.To)
}
