package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// DBExecutor interface for database operations (can be *sqlx.DB or *sqlx.Tx)
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// CustomerRepository handles customer data operations
type CustomerRepository struct{}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{}
}

// CreateCustomer inserts a new customer
func (r *CustomerRepository) CreateCustomer(ctx context.Context, db DBExecutor, customer *model.Customer) error {
	query := `
		INSERT INTO customer (id, name, phone, coupons, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := db.ExecContext(ctx, query,
		customer.ID, customer.Name, customer.Phone, customer.Coupons, time.Now())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ledger.ErrDuplicateKey
		}
		return storageError("create customer", err)
	}

	return nil
}

// GetCustomer retrieves a customer by business ID
func (r *CustomerRepository) GetCustomer(ctx context.Context, db DBExecutor, id int64) (*model.Customer, error) {
	query := `
		SELECT id, name, phone, coupons
		FROM customer
		WHERE id = $1
	`

	var customer model.Customer
	err := db.GetContext(ctx, &customer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, storageError("get customer", err)
	}

	return &customer, nil
}

// ListCustomers retrieves all customers in registration order
func (r *CustomerRepository) ListCustomers(ctx context.Context, db DBExecutor) ([]*model.Customer, error) {
	query := `
		SELECT id, name, phone, coupons
		FROM customer
		ORDER BY created_at ASC, id ASC
	`

	customers := []*model.Customer{}
	if err := db.SelectContext(ctx, &customers, query); err != nil {
		return nil, storageError("list customers", err)
	}

	return customers, nil
}

// GetCustomersByIDs retrieves the customers whose IDs are in ids
func (r *CustomerRepository) GetCustomersByIDs(ctx context.Context, db DBExecutor, ids []int64) ([]*model.Customer, error) {
	customers := []*model.Customer{}
	if len(ids) == 0 {
		return customers, nil
	}

	query := `
		SELECT id, name, phone, coupons
		FROM customer
		WHERE id = ANY($1)
	`

	if err := db.SelectContext(ctx, &customers, query, pq.Array(ids)); err != nil {
		return nil, storageError("get customers by ids", err)
	}

	return customers, nil
}

// grantResult is the row returned by the grant UPDATE
type grantResult struct {
	Balance int `db:"balance"`
	Granted int `db:"granted"`
}

// GrantCoupons raises the balance up to limit in a single conditional UPDATE.
// The locked pre-update row is joined in so the added amount comes from the
// same statement.
func (r *CustomerRepository) GrantCoupons(ctx context.Context, db DBExecutor, id int64, amount, limit int) (int, int, error) {
	query := `
		WITH previous AS (
			SELECT id, coupons
			FROM customer
			WHERE id = $3 AND coupons < $2
			FOR UPDATE
		)
		UPDATE customer c
		SET coupons = LEAST(p.coupons + $1, $2)
		FROM previous p
		WHERE c.id = p.id
		RETURNING c.coupons AS balance, c.coupons - p.coupons AS granted
	`

	var result grantResult
	err := db.GetContext(ctx, &result, query, amount, limit, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Nothing updated: either the customer is missing or already at the cap
			return 0, 0, r.missingOr(ctx, db, id, ledger.ErrLimitReached)
		}
		return 0, 0, storageError("grant coupons", err)
	}

	return result.Balance, result.Granted, nil
}

// ConsumeCoupons lowers the balance only if enough coupons remain
func (r *CustomerRepository) ConsumeCoupons(ctx context.Context, db DBExecutor, id int64, amount int) (int, error) {
	query := `
		UPDATE customer
		SET coupons = coupons - $1
		WHERE id = $2 AND coupons >= $1
		RETURNING coupons
	`

	var balance int
	err := db.GetContext(ctx, &balance, query, amount, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.missingOr(ctx, db, id, ledger.ErrInsufficientBalance)
		}
		return 0, storageError("consume coupons", err)
	}

	return balance, nil
}

// missingOr returns ErrNotFound when the customer does not exist and cause otherwise
func (r *CustomerRepository) missingOr(ctx context.Context, db DBExecutor, id int64, cause error) error {
	var exists bool
	err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM customer WHERE id = $1)`, id)
	if err != nil {
		return storageError("check customer", err)
	}
	if !exists {
		return ledger.ErrNotFound
	}
	return cause
}

// storageError marks a driver failure as ledger.ErrStorageUnavailable
func storageError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ledger.ErrStorageUnavailable, err)
}
