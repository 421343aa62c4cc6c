package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"economy-engine/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	name         string
	createErr    error
	verifyStatus PaymentStatus
	verifyErr    error

	createCalls int
	verifyCalls int
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateTransaction(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &CheckoutSession{
		CheckoutURL:           "https://pay.example.com/" + req.OrderID,
		ProviderTransactionID: "tr_" + req.OrderID,
	}, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, providerTransactionID string) (PaymentStatus, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return PaymentStatusUnknown, g.verifyErr
	}
	return g.verifyStatus, nil
}

func newTestCheckout(t *testing.T, gw *fakeGateway) (*CheckoutService, *WalletService) {
	t.Helper()

	db := newTestDB(t)
	wallet := NewWalletService(db)
	achievements := NewAchievementService(db, wallet)
	return &CheckoutService{
		DB:             db,
		Gateways:       map[string]PaymentGateway{gw.name: gw},
		Achievements:   achievements,
		ReturnBaseURL:  "http://localhost/checkout/return",
		GatewayTimeout: time.Second,
	}, wallet
}

func TestInitiateCheckoutCreatesPendingOrder(t *testing.T) {
	gw := &fakeGateway{name: "fake"}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, product.Price, order.Amount)
	assert.Equal(t, product.Currency, order.Currency)
	assert.Equal(t, "tr_"+order.ID, order.PaymentID)
	assert.Equal(t, "https://pay.example.com/"+order.ID, order.CheckoutURL)
	assert.Equal(t, 1, gw.createCalls)

	var stored models.Order
	require.NoError(t, checkout.DB.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, order.PaymentID, stored.PaymentID)
}

func TestInitiateCheckoutRejectsUnpublishedProduct(t *testing.T) {
	gw := &fakeGateway{name: "fake"}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)

	hidden := models.DigitalProduct{
		ID: uuid.NewString(), Slug: "hidden", Name: "Hidden",
		Price: 100, Currency: "EUR", IsPublished: false,
	}
	require.NoError(t, checkout.DB.Create(&hidden).Error)

	_, err := checkout.InitiateCheckout(context.Background(), userID, hidden.ID, "fake")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, gw.createCalls)
}

func TestInitiateCheckoutUnknownProvider(t *testing.T) {
	gw := &fakeGateway{name: "fake"}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	_, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "stripe")
	assert.Error(t, err)
}

func TestInitiateCheckoutGatewayFailureMarksOrderFailed(t *testing.T) {
	gw := &fakeGateway{name: "fake", createErr: &GatewayError{Provider: "fake", Op: "create", Err: assert.AnError}}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	_, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)

	// The failed attempt is still on record, and no ownership leaked out.
	var order models.Order
	require.NoError(t, checkout.DB.Where("external_user_id = ?", userID).First(&order).Error)
	assert.Equal(t, models.OrderStatusFailed, order.Status)

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).Count(&owned).Error)
	assert.Zero(t, owned)
}

func TestConfirmFulfillmentGrantsOwnershipOnce(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusPaid}
	checkout, wallet := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	confirmed, err := checkout.ConfirmFulfillment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusSuccess, confirmed.Status)
	assert.Equal(t, 1, gw.verifyCalls)

	// Duplicate callback: no re-verification, no extra writes.
	confirmed, err = checkout.ConfirmFulfillment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusSuccess, confirmed.Status)
	assert.Equal(t, 1, gw.verifyCalls, "a SUCCESS order must not be re-verified")

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).
		Where("external_user_id = ? AND product_id = ?", userID, product.ID).Count(&owned).Error)
	assert.Equal(t, int64(1), owned)

	// Fulfillment fires the supporter achievement exactly once.
	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), user.XP)
	assert.Equal(t, int64(100), user.Runes)
}

func TestConfirmFulfillmentAmbiguousStatusStaysPending(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusPending}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	confirmed, err := checkout.ConfirmFulfillment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, confirmed.Status)

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).Count(&owned).Error)
	assert.Zero(t, owned)

	// The provider settles later; a retried confirmation completes.
	gw.verifyStatus = PaymentStatusPaid
	confirmed, err = checkout.ConfirmFulfillment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusSuccess, confirmed.Status)
}

func TestConfirmFulfillmentProviderReportedFailure(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusFailed}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	confirmed, err := checkout.ConfirmFulfillment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, confirmed.Status)

	// FAILED is terminal: even a now-paid verification can't revive it.
	gw.verifyStatus = PaymentStatusPaid
	_, err = checkout.ConfirmFulfillment(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrOrderClosed)

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).Count(&owned).Error)
	assert.Zero(t, owned)
}

func TestCancelOrder(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusPaid}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	otherID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	_, err = checkout.CancelOrder(otherID, order.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	cancelled, err := checkout.CancelOrder(userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// CANCELLED is terminal.
	_, err = checkout.ConfirmFulfillment(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrOrderClosed)
	_, err = checkout.CancelOrder(userID, order.ID)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestFulfillAfterCancelReportsClosed(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusPaid}
	checkout, _ := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	// The order closes underneath a confirmation that already read it as
	// PENDING.
	_, err = checkout.CancelOrder(userID, order.ID)
	require.NoError(t, err)

	stale := *order
	stale.Status = models.OrderStatusPending
	err = checkout.fulfill(&stale)
	assert.ErrorIs(t, err, ErrOrderClosed)
	assert.Equal(t, models.OrderStatusCancelled, stale.Status,
		"a cancelled purchase must not read as complete")

	var stored models.Order
	require.NoError(t, checkout.DB.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).Count(&owned).Error)
	assert.Zero(t, owned)
}

func TestFulfillLostRaceToSuccessIsIdempotent(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusPaid}
	checkout, wallet := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)
	_, err = checkout.ConfirmFulfillment(context.Background(), order.ID)
	require.NoError(t, err)

	// Losing the CAS to another successful confirmation is not an error.
	stale := *order
	stale.Status = models.OrderStatusPending
	require.NoError(t, checkout.fulfill(&stale))
	assert.Equal(t, models.OrderStatusSuccess, stale.Status)

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).Count(&owned).Error)
	assert.Equal(t, int64(1), owned)

	// The loser never re-triggers the supporter reward.
	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), user.XP)
}

func TestConcurrentConfirmationsGrantOnce(t *testing.T) {
	gw := &fakeGateway{name: "fake", verifyStatus: PaymentStatusPaid}
	checkout, wallet := newTestCheckout(t, gw)
	userID := createTestUser(t, checkout.DB, 0, 0, 0)
	product := productBySlug(t, checkout.DB, "supporter-pack")

	order, err := checkout.InitiateCheckout(context.Background(), userID, product.ID, "fake")
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := checkout.ConfirmFulfillment(context.Background(), order.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var stored models.Order
	require.NoError(t, checkout.DB.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, models.OrderStatusSuccess, stored.Status)

	var owned int64
	require.NoError(t, checkout.DB.Model(&models.DigitalProductOwnership{}).
		Where("external_user_id = ? AND product_id = ?", userID, product.ID).Count(&owned).Error)
	assert.Equal(t, int64(1), owned)

	user, err := wallet.GetUser(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), user.XP, "supporter reward credited exactly once")
}

func TestConfirmFulfillmentUnknownOrder(t *testing.T) {
	gw := &fakeGateway{name: "fake"}
	checkout, _ := newTestCheckout(t, gw)

	_, err := checkout.ConfirmFulfillment(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
