package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// DefaultBottles is the bottle count of a regular delivery.
const DefaultBottles = 1

// DeliveryLog is the append-only ledger of delivery events. It does not check
// that the referenced customer exists.
type DeliveryLog struct {
	store DeliveryStore
}

// NewDeliveryLog creates a DeliveryLog over the given store
func NewDeliveryLog(store DeliveryStore) *DeliveryLog {
	return &DeliveryLog{store: store}
}

// Append records a delivery on the calendar day of date
func (l *DeliveryLog) Append(ctx context.Context, customerID int64, date time.Time, bottles int) (*model.Delivery, error) {
	if bottles < 0 || bottles > model.MaxBottles {
		return nil, fmt.Errorf("%w: bottles delivered must be between 0 and %d", ErrInvalidInput, model.MaxBottles)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: delivery date is required", ErrInvalidInput)
	}

	delivery := &model.Delivery{
		CustomerID:       customerID,
		Date:             model.DayOf(date),
		BottlesDelivered: bottles,
	}
	if err := l.store.InsertDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("append delivery for customer %d: %w", customerID, err)
	}

	return delivery, nil
}

// QueryByCustomer returns a customer's deliveries, most recent first
func (l *DeliveryLog) QueryByCustomer(ctx context.Context, customerID int64) ([]*model.Delivery, error) {
	deliveries, err := l.store.DeliveriesByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("query deliveries of customer %d: %w", customerID, err)
	}
	return deliveries, nil
}

// QueryByDate returns the deliveries made on the calendar day of date
func (l *DeliveryLog) QueryByDate(ctx context.Context, date time.Time) ([]*model.Delivery, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	from, to := model.DayRange(date)
	deliveries, err := l.store.DeliveriesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query deliveries on %s: %w", model.FormatDay(date), err)
	}
	if deliveries == nil {
		deliveries = []*model.Delivery{}
	}
	return deliveries, nil
}
