package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// SummaryEntry is one delivery of a day joined with the customer's identity.
// Customer is nil when the delivery references an unknown customer.
type SummaryEntry struct {
	Delivery *model.Delivery    `json:"delivery"`
	Customer *model.CustomerRef `json:"customer"`
}

// CustomerDetails is a customer together with its delivery history
type CustomerDetails struct {
	Customer   *model.Customer   `json:"customer"`
	Deliveries []*model.Delivery `json:"deliveries"`
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used to resolve "today"
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the time zone in which "today" is evaluated
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// Service composes the customer ledger and the delivery log
type Service struct {
	store      Store
	Customers  *CustomerLedger
	Deliveries *DeliveryLog
	now        func() time.Time
	loc        *time.Location
}

// NewService creates a Service backed by store
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		Customers:  NewCustomerLedger(store),
		Deliveries: NewDeliveryLog(store),
		now:        time.Now,
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the storage handle the service was built with
func (s *Service) Store() Store {
	return s.store
}

// Today returns the current calendar day in the service's time zone
func (s *Service) Today() time.Time {
	return model.DayOf(s.now().In(s.loc))
}

// RecordDelivery consumes one coupon and appends a delivery record in a single
// storage transaction. A zero date means today. A customer with no coupons
// left gets ErrInsufficientBalance and nothing is recorded.
func (s *Service) RecordDelivery(ctx context.Context, customerID int64, date time.Time, bottles int) (*model.Delivery, error) {
	if bottles < 0 || bottles > model.MaxBottles {
		return nil, fmt.Errorf("%w: bottles delivered must be between 0 and %d", ErrInvalidInput, model.MaxBottles)
	}
	if date.IsZero() {
		date = s.Today()
	}

	var delivery *model.Delivery
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		customers := NewCustomerLedger(tx)
		deliveries := NewDeliveryLog(tx)

		customer, err := customers.Get(ctx, customerID)
		if err != nil {
			return err
		}
		if customer.Coupons < DefaultConsume {
			return fmt.Errorf("record delivery for customer %d: %w", customerID, ErrInsufficientBalance)
		}

		// The balance read above is only a fast path; the conditional
		// update below is what guards against concurrent deliveries.
		if _, err := customers.Consume(ctx, customerID, DefaultConsume); err != nil {
			return err
		}

		delivery, err = deliveries.Append(ctx, customerID, date, bottles)
		return err
	})
	if err != nil {
		return nil, err
	}

	return delivery, nil
}

// Summarize joins the deliveries of a calendar day with customer identity
func (s *Service) Summarize(ctx context.Context, date time.Time) ([]SummaryEntry, error) {
	deliveries, err := s.Deliveries.QueryByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(deliveries) == 0 {
		return []SummaryEntry{}, nil
	}

	seen := make(map[int64]struct{}, len(deliveries))
	ids := make([]int64, 0, len(deliveries))
	for _, d := range deliveries {
		if _, ok := seen[d.CustomerID]; ok {
			continue
		}
		seen[d.CustomerID] = struct{}{}
		ids = append(ids, d.CustomerID)
	}

	customers, err := s.store.GetCustomersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("summarize deliveries: %w", err)
	}
	refs := make(map[int64]*model.CustomerRef, len(customers))
	for _, c := range customers {
		refs[c.ID] = &model.CustomerRef{Name: c.Name, Phone: c.Phone}
	}

	entries := make([]SummaryEntry, 0, len(deliveries))
	for _, d := range deliveries {
		entries = append(entries, SummaryEntry{
			Delivery: d,
			Customer: refs[d.CustomerID],
		})
	}

	return entries, nil
}

// Details returns a customer with its delivery history, most recent first
func (s *Service) Details(ctx context.Context, customerID int64) (*CustomerDetails, error) {
	customer, err := s.Customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.Deliveries.QueryByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []*model.Delivery{}
	}

	return &CustomerDetails{
		Customer:   customer,
		Deliveries: deliveries,
	}, nil
}
