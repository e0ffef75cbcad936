package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

//go:embed migrations/schema.sql
var schema string

// compile-time interface check
var _ ledger.Store = (*Store)(nil)

// Store implements ledger.Store on PostgreSQL
type Store struct {
	db         *sqlx.DB
	exec       DBExecutor
	inTx       bool
	customers  *CustomerRepository
	deliveries *DeliveryRepository
}

// NewStore creates a PostgreSQL-backed store
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:         db,
		exec:       db,
		customers:  NewCustomerRepository(),
		deliveries: NewDeliveryRepository(),
	}
}

// Migrate creates the customer and delivery tables and their indexes
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) InsertCustomer(ctx context.Context, c *model.Customer) error {
	return s.customers.CreateCustomer(ctx, s.exec, c)
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return s.customers.GetCustomer(ctx, s.exec, id)
}

func (s *Store) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	return s.customers.ListCustomers(ctx, s.exec)
}

func (s *Store) GetCustomersByIDs(ctx context.Context, ids []int64) ([]*model.Customer, error) {
	return s.customers.GetCustomersByIDs(ctx, s.exec, ids)
}

func (s *Store) GrantCoupons(ctx context.Context, id int64, amount, limit int) (int, int, error) {
	return s.customers.GrantCoupons(ctx, s.exec, id, amount, limit)
}

func (s *Store) ConsumeCoupons(ctx context.Context, id int64, amount int) (int, error) {
	return s.customers.ConsumeCoupons(ctx, s.exec, id, amount)
}

func (s *Store) InsertDelivery(ctx context.Context, d *model.Delivery) error {
	return s.deliveries.CreateDelivery(ctx, s.exec, d)
}

func (s *Store) DeliveriesByCustomer(ctx context.Context, customerID int64) ([]*model.Delivery, error) {
	return s.deliveries.GetDeliveriesByCustomer(ctx, s.exec, customerID)
}

func (s *Store) DeliveriesBetween(ctx context.Context, from, to time.Time) ([]*model.Delivery, error) {
	return s.deliveries.GetDeliveriesBetween(ctx, s.exec, from, to)
}

// RunInTx runs fn inside a database transaction. Calls on a store that is
// already transactional join the running transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError("begin transaction", err)
	}
	defer tx.Rollback()

	txStore := &Store{
		db:         s.db,
		exec:       tx,
		inTx:       true,
		customers:  s.customers,
		deliveries: s.deliveries,
	}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit transaction", err)
	}

	return nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", err)
	}
	return nil
}
