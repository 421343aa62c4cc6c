package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"economy-engine/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutService is the order fulfillment pipeline: PENDING order first,
// gateway second, and ownership only after the provider confirms payment.
// Terminal states are enforced by guarding every transition with a
// "status = PENDING" predicate, so a duplicate or late callback can never
// move an order twice.
type CheckoutService struct {
	DB           *gorm.DB
	Gateways     map[string]PaymentGateway
	Achievements *AchievementService

	// ReturnBaseURL is where providers send the user after checkout.
	ReturnBaseURL string
	// GatewayTimeout bounds the network call, separately from any DB work.
	GatewayTimeout time.Duration
}

func NewCheckoutService(db *gorm.DB, achievements *AchievementService, gateways ...PaymentGateway) *CheckoutService {
	byName := make(map[string]PaymentGateway, len(gateways))
	for _, g := range gateways {
		byName[g.Name()] = g
	}
	returnBase := os.Getenv("CHECKOUT_RETURN_URL")
	if returnBase == "" {
		returnBase = "http://localhost:5200/checkout/return"
	}
	return &CheckoutService{
		DB:             db,
		Gateways:       byName,
		Achievements:   achievements,
		ReturnBaseURL:  returnBase,
		GatewayTimeout: 20 * time.Second,
	}
}

// InitiateCheckout validates the product, persists a PENDING order, then
// asks the gateway for a checkout session. The order exists before the
// network call: a gateway timeout leaves a queryable PENDING record, and
// an explicit gateway failure marks it FAILED.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, externalUserID, productID, provider string) (*models.Order, error) {
	var product models.DigitalProduct
	if err := s.DB.Where("id = ? AND is_published = ?", productID, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	gateway, ok := s.Gateways[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported payment provider %q", provider)
	}

	var user models.User
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	order := models.Order{
		ID:              uuid.NewString(),
		ExternalUserID:  externalUserID,
		ProductID:       product.ID,
		Amount:          product.Price,
		Currency:        product.Currency,
		Status:          models.OrderStatusPending,
		PaymentProvider: gateway.Name(),
	}
	if err := s.DB.Create(&order).Error; err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
	defer cancel()

	session, err := gateway.CreateTransaction(gwCtx, CheckoutRequest{
		OrderID:         order.ID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		CustomerName:    user.Username,
		CustomerEmail:   user.Email,
		ItemDescription: describeProduct(&product),
		RedirectURL:     fmt.Sprintf("%s?order_id=%s", s.ReturnBaseURL, order.ID),
	})
	if err != nil {
		s.transition(order.ID, models.OrderStatusPending, models.OrderStatusFailed, nil)
		log.Printf("[CHECKOUT] gateway %s rejected order %s: %v", gateway.Name(), order.ID, err)
		return nil, err
	}

	if err := s.DB.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"payment_id":   session.ProviderTransactionID,
			"checkout_url": session.CheckoutURL,
		}).Error; err != nil {
		return nil, err
	}
	order.PaymentID = session.ProviderTransactionID
	order.CheckoutURL = session.CheckoutURL

	log.Printf("[CHECKOUT] order %s pending via %s (payment %s)", order.ID, gateway.Name(), order.PaymentID)
	return &order, nil
}

// ConfirmFulfillment is the callback/reconciliation entry point. It is
// safe to call any number of times with the same order id:
//   - already SUCCESS: returns the order, no writes;
//   - other terminal states: ErrOrderClosed;
//   - otherwise the payment is re-verified with the provider, and only a
//     provider-confirmed "paid" moves the order to SUCCESS and inserts the
//     ownership row, both in one transaction. An ambiguous answer leaves
//     the order PENDING for a later retry.
func (s *CheckoutService) ConfirmFulfillment(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if order.Status == models.OrderStatusSuccess {
		return &order, nil
	}
	if order.Status.IsTerminal() {
		return &order, ErrOrderClosed
	}

	gateway, ok := s.Gateways[order.PaymentProvider]
	if !ok {
		return nil, fmt.Errorf("order %s references unknown provider %q", order.ID, order.PaymentProvider)
	}
	if order.PaymentID == "" {
		// Initiation never reached the gateway; nothing to verify.
		return &order, nil
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
	defer cancel()

	status, err := gateway.VerifyPayment(gwCtx, order.PaymentID)
	if err != nil {
		return nil, err
	}

	switch status {
	case PaymentStatusPaid:
		if err := s.fulfill(&order); err != nil {
			if errors.Is(err, ErrOrderClosed) {
				return &order, ErrOrderClosed
			}
			return nil, err
		}
	case PaymentStatusFailed:
		s.transition(order.ID, models.OrderStatusPending, models.OrderStatusFailed, &order)
		log.Printf("[CHECKOUT] order %s failed at provider %s", order.ID, order.PaymentProvider)
	default:
		// Pending or unknown: leave PENDING, the reconciliation worker
		// will ask again.
	}
	return &order, nil
}

// CancelOrder moves a user's own PENDING order to CANCELLED.
func (s *CheckoutService) CancelOrder(externalUserID, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.ExternalUserID != externalUserID {
		return nil, ErrUnauthorized
	}
	if order.Status.IsTerminal() {
		return &order, ErrOrderClosed
	}

	if !s.transition(order.ID, models.OrderStatusPending, models.OrderStatusCancelled, &order) {
		// Lost a race against a confirmation; report the fresh state.
		if err := s.DB.Where("id = ?", orderID).First(&order).Error; err != nil {
			return nil, err
		}
		return &order, ErrOrderClosed
	}
	return &order, nil
}

// ListOrders returns a user's orders, newest first.
func (s *CheckoutService) ListOrders(externalUserID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// fulfill performs the atomic SUCCESS transition plus ownership insert.
// The compare-and-set on status means exactly one caller wins and writes.
// A loser re-reads the row: SUCCESS (another confirmation won) is fine,
// anything else means the order closed underneath us.
func (s *CheckoutService) fulfill(order *models.Order) error {
	won := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("status", models.OrderStatusSuccess)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		ownership := models.DigitalProductOwnership{
			ID:             uuid.NewString(),
			ExternalUserID: order.ExternalUserID,
			ProductID:      order.ProductID,
			OrderID:        order.ID,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ownership).Error
	})
	if err != nil {
		return err
	}

	if !won {
		// Lost the race. Report the row's actual state instead of assuming
		// SUCCESS: a concurrent cancellation must not read as a completed
		// purchase.
		if err := s.DB.Where("id = ?", order.ID).First(order).Error; err != nil {
			return err
		}
		if order.Status != models.OrderStatusSuccess {
			return ErrOrderClosed
		}
		return nil
	}

	order.Status = models.OrderStatusSuccess
	log.Printf("[CHECKOUT] order %s fulfilled, product %s granted to %s",
		order.ID, order.ProductID, order.ExternalUserID)
	if s.Achievements != nil {
		if _, err := s.Achievements.TriggerSpecial(order.ExternalUserID, "supporter"); err != nil {
			log.Printf("[CHECKOUT] supporter achievement trigger failed for %s: %v", order.ExternalUserID, err)
		}
	}
	return nil
}

// transition is the guarded single-state-machine step. Returns whether the
// row actually moved.
func (s *CheckoutService) transition(orderID string, from, to models.OrderStatus, order *models.Order) bool {
	res := s.DB.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		log.Printf("[CHECKOUT] transition %s -> %s failed for order %s: %v", from, to, orderID, res.Error)
		return false
	}
	if res.RowsAffected > 0 && order != nil {
		order.Status = to
	}
	return res.RowsAffected > 0
}

// describeProduct builds the line-item description shown on the provider's
// checkout page.
func describeProduct(p *models.DigitalProduct) string {
	printer := message.NewPrinter(language.English)
	return printer.Sprintf("%s (%s %.2f)", p.Name, p.Currency, float64(p.Price)/100)
}
