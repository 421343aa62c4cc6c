package workers

import (
	"context"
	"log"
	"time"

	"economy-engine/models"
	"economy-engine/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Reconciliation settings. An order that stays PENDING past ExpireAfter is
// considered abandoned and cancelled; anything younger but older than
// RecheckAfter gets its payment status re-verified with the provider.
const (
	RecheckAfter = 2 * time.Minute
	ExpireAfter  = 24 * time.Hour
	batchSize    = 50
)

// StartOrderReconciler runs the periodic sweep over PENDING orders. This
// is what turns "ambiguous provider answer" into an eventual outcome
// without trusting any single callback delivery.
func StartOrderReconciler(db *gorm.DB, checkout *services.CheckoutService) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("[RECONCILE] scheduler init failed: %v", err)
	}
	sched.Start()

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			reconcilePending(db, checkout)
			expireStale(db)
		}),
	); err != nil {
		log.Fatalf("[RECONCILE] job registration failed: %v", err)
	}
}

func reconcilePending(db *gorm.DB, checkout *services.CheckoutService) {
	cutoff := time.Now().Add(-RecheckAfter)

	var orders []models.Order
	err := db.Where("status = ? AND payment_id <> '' AND created_at <= ?", models.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&orders).Error
	if err != nil {
		log.Printf("[RECONCILE] DB error: %v", err)
		return
	}

	for _, order := range orders {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		updated, err := checkout.ConfirmFulfillment(ctx, order.ID)
		cancel()
		if err != nil {
			log.Printf("[RECONCILE] order %s: %v", order.ID, err)
			continue
		}
		if updated.Status != models.OrderStatusPending {
			log.Printf("[RECONCILE] order %s settled as %s", order.ID, updated.Status)
		}
	}
}

// expireStale cancels PENDING orders nobody came back for. The guarded
// update means an order fulfilled between the query and the write is
// left alone.
func expireStale(db *gorm.DB) {
	cutoff := time.Now().Add(-ExpireAfter)

	res := db.Model(&models.Order{}).
		Where("status = ? AND created_at <= ?", models.OrderStatusPending, cutoff).
		Update("status", models.OrderStatusCancelled)
	if res.Error != nil {
		log.Printf("[RECONCILE] expiry sweep failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[RECONCILE] expired %d stale orders", res.RowsAffected)
	}
}
