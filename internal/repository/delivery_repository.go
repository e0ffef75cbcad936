package repository

import (
	"context"
	"time"

	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// DeliveryRepository handles delivery log data operations
type DeliveryRepository struct{}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{}
}

// CreateDelivery appends a delivery record
func (r *DeliveryRepository) CreateDelivery(ctx context.Context, db DBExecutor, delivery *model.Delivery) error {
	query := `
		INSERT INTO delivery (customer_id, date, bottles_delivered, created_at)
		VALUES ($1, $2::date, $3, $4)
	`

	_, err := db.ExecContext(ctx, query,
		delivery.CustomerID, model.FormatDay(delivery.Date), delivery.BottlesDelivered, time.Now())
	if err != nil {
		return storageError("create delivery", err)
	}

	return nil
}

// GetDeliveriesByCustomer retrieves a customer's deliveries, most recent first
func (r *DeliveryRepository) GetDeliveriesByCustomer(ctx context.Context, db DBExecutor, customerID int64) ([]*model.Delivery, error) {
	query := `
		SELECT customer_id, date, bottles_delivered
		FROM delivery
		WHERE customer_id = $1
		ORDER BY date DESC, id DESC
	`

	deliveries := []*model.Delivery{}
	if err := db.SelectContext(ctx, &deliveries, query, customerID); err != nil {
		return nil, storageError("get deliveries by customer", err)
	}

	return normalizeDays(deliveries), nil
}

// GetDeliveriesBetween retrieves deliveries dated within [from, to)
func (r *DeliveryRepository) GetDeliveriesBetween(ctx context.Context, db DBExecutor, from, to time.Time) ([]*model.Delivery, error) {
	query := `
		SELECT customer_id, date, bottles_delivered
		FROM delivery
		WHERE date >= $1::date AND date < $2::date
		ORDER BY id ASC
	`

	deliveries := []*model.Delivery{}
	err := db.SelectContext(ctx, &deliveries, query, model.FormatDay(from), model.FormatDay(to))
	if err != nil {
		return nil, storageError("get deliveries by date", err)
	}

	return normalizeDays(deliveries), nil
}

// normalizeDays drops the session time zone lib/pq attaches to DATE values
func normalizeDays(deliveries []*model.Delivery) []*model.Delivery {
	for _, d := range deliveries {
		d.Date = model.DayOf(d.Date)
	}
	return deliveries
}
