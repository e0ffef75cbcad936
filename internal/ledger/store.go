package ledger

import (
	"context"
	"time"

	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// CustomerStore persists customers. GrantCoupons and ConsumeCoupons must be
// atomic conditional updates: the balance check and the write happen in one
// storage operation.
type CustomerStore interface {
	// InsertCustomer stores a new customer, returning ErrDuplicateKey on id collision.
	InsertCustomer(ctx context.Context, c *model.Customer) error

	// GetCustomer returns the customer with the given id or ErrNotFound.
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)

	// ListCustomers returns all customers in insertion order.
	ListCustomers(ctx context.Context) ([]*model.Customer, error)

	// GetCustomersByIDs returns the customers that exist among ids. Missing ids are skipped.
	GetCustomersByIDs(ctx context.Context, ids []int64) ([]*model.Customer, error)

	// GrantCoupons sets coupons = min(coupons+amount, limit) when coupons < limit
	// and returns the new balance together with the number of coupons added. It
	// returns ErrLimitReached when the balance is already at limit and
	// ErrNotFound when the customer does not exist.
	GrantCoupons(ctx context.Context, id int64, amount, limit int) (balance, granted int, err error)

	// ConsumeCoupons decrements coupons by amount when coupons >= amount and
	// returns the new balance. It returns ErrInsufficientBalance or ErrNotFound.
	ConsumeCoupons(ctx context.Context, id int64, amount int) (int, error)
}

// DeliveryStore persists the append-only delivery log.
type DeliveryStore interface {
	InsertDelivery(ctx context.Context, d *model.Delivery) error

	// DeliveriesByCustomer returns a customer's deliveries, most recent date first.
	DeliveriesByCustomer(ctx context.Context, customerID int64) ([]*model.Delivery, error)

	// DeliveriesBetween returns deliveries with from <= date < to.
	DeliveriesBetween(ctx context.Context, from, to time.Time) ([]*model.Delivery, error)
}

// Store is the storage handle the ledger is constructed with.
type Store interface {
	CustomerStore
	DeliveryStore

	// RunInTx runs fn against a transactional view of the store. Effects made
	// through tx are discarded when fn returns an error.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}
