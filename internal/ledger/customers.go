package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

const (
	// DefaultGrant is the number of coupons added by a top-up.
	DefaultGrant = 10

	// DefaultConsume is the number of coupons a delivery uses.
	DefaultConsume = 1
)

// CustomerLedger owns customer identity and the bounded coupon balance
type CustomerLedger struct {
	store CustomerStore
}

// NewCustomerLedger creates a CustomerLedger over the given store
func NewCustomerLedger(store CustomerStore) *CustomerLedger {
	return &CustomerLedger{store: store}
}

// Register creates a new customer with an initial coupon balance
func (l *CustomerLedger) Register(ctx context.Context, id int64, name, phone string, initialCoupons int) (*model.Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	switch {
	case id <= 0:
		return nil, fmt.Errorf("%w: customer id must be positive", ErrInvalidInput)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case phone == "":
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	case initialCoupons < 0 || initialCoupons > model.MaxCoupons:
		return nil, fmt.Errorf("%w: coupons must be between 0 and %d", ErrInvalidInput, model.MaxCoupons)
	}

	customer := &model.Customer{
		ID:      id,
		Name:    name,
		Phone:   phone,
		Coupons: initialCoupons,
	}
	if err := l.store.InsertCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("register customer %d: %w", id, err)
	}

	return customer, nil
}

// Grant tops up a customer's balance, saturating at model.MaxCoupons. It
// returns the new balance and how many coupons were actually added.
func (l *CustomerLedger) Grant(ctx context.Context, customerID int64, amount int) (balance, granted int, err error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("%w: grant amount must be positive", ErrInvalidInput)
	}
	// any amount above the cap saturates the same way
	amount = min(amount, model.MaxCoupons)

	balance, granted, err = l.store.GrantCoupons(ctx, customerID, amount, model.MaxCoupons)
	if err != nil {
		return 0, 0, fmt.Errorf("grant coupons to customer %d: %w", customerID, err)
	}

	return balance, granted, nil
}

// Consume takes amount coupons from a customer's balance
func (l *CustomerLedger) Consume(ctx context.Context, customerID int64, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: consume amount must be positive", ErrInvalidInput)
	}

	balance, err := l.store.ConsumeCoupons(ctx, customerID, amount)
	if err != nil {
		return 0, fmt.Errorf("consume coupons of customer %d: %w", customerID, err)
	}

	return balance, nil
}

// Get retrieves a customer by business id
func (l *CustomerLedger) Get(ctx context.Context, customerID int64) (*model.Customer, error) {
	customer, err := l.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", customerID, err)
	}
	return customer, nil
}

// List returns every customer
func (l *CustomerLedger) List(ctx context.Context) ([]*model.Customer, error) {
	customers, err := l.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}
