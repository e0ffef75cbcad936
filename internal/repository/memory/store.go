// Package memory is an in-process ledger.Store. Every operation holds the
// store mutex, so conditional coupon updates are atomic. RunInTx keeps an undo
// log and reverts the effects made through the transaction when fn fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// compile-time interface check
var _ ledger.Store = (*Store)(nil)

type deliveryRow struct {
	seq      int64
	delivery model.Delivery
}

// Store keeps customers and deliveries in memory
type Store struct {
	mu sync.RWMutex

	customers map[int64]*model.Customer
	order     []int64

	deliveries []deliveryRow
	seq        int64
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		customers: make(map[int64]*model.Customer),
	}
}

func (s *Store) InsertCustomer(ctx context.Context, c *model.Customer) error {
	_, err := s.insertCustomer(c)
	return err
}

func (s *Store) insertCustomer(c *model.Customer) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID]; exists {
		return nil, ledger.ErrDuplicateKey
	}
	cp := *c
	s.customers[c.ID] = &cp
	s.order = append(s.order, c.ID)

	undo := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.customers, c.ID)
		for i, id := range s.order {
			if id == c.ID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return undo, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Customer, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.customers[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) GetCustomersByIDs(_ context.Context, ids []int64) ([]*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Customer, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.customers[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GrantCoupons(_ context.Context, id int64, amount, limit int) (int, int, error) {
	balance, granted, _, err := s.grantCoupons(id, amount, limit)
	return balance, granted, err
}

func (s *Store) grantCoupons(id int64, amount, limit int) (int, int, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return 0, 0, nil, ledger.ErrNotFound
	}
	if c.Coupons >= limit {
		return 0, 0, nil, ledger.ErrLimitReached
	}

	// limit - coupons is the headroom; comparing against it cannot overflow
	granted := min(amount, limit-c.Coupons)
	c.Coupons += granted

	undo := func() { s.adjust(id, -granted, limit) }
	return c.Coupons, granted, undo, nil
}

func (s *Store) ConsumeCoupons(_ context.Context, id int64, amount int) (int, error) {
	balance, _, err := s.consumeCoupons(id, amount)
	return balance, err
}

func (s *Store) consumeCoupons(id int64, amount int) (int, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return 0, nil, ledger.ErrNotFound
	}
	if c.Coupons < amount {
		return 0, nil, ledger.ErrInsufficientBalance
	}
	c.Coupons -= amount

	undo := func() { s.adjust(id, amount, model.MaxCoupons) }
	return c.Coupons, undo, nil
}

// adjust reverts a balance change. Other writers may have moved the balance
// since, so the result is kept within [0, limit].
func (s *Store) adjust(id int64, delta, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.customers[id]; ok {
		c.Coupons = max(0, min(c.Coupons+delta, limit))
	}
}

func (s *Store) InsertDelivery(_ context.Context, d *model.Delivery) error {
	_, err := s.insertDelivery(d)
	return err
}

func (s *Store) insertDelivery(d *model.Delivery) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	s.deliveries = append(s.deliveries, deliveryRow{seq: seq, delivery: *d})

	undo := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, row := range s.deliveries {
			if row.seq == seq {
				s.deliveries = append(s.deliveries[:i], s.deliveries[i+1:]...)
				break
			}
		}
	}
	return undo, nil
}

func (s *Store) DeliveriesByCustomer(_ context.Context, customerID int64) ([]*model.Delivery, error) {
	s.mu.RLock()
	rows := make([]deliveryRow, 0)
	for _, row := range s.deliveries {
		if row.delivery.CustomerID == customerID {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].delivery.Date.Equal(rows[j].delivery.Date) {
			return rows[i].delivery.Date.After(rows[j].delivery.Date)
		}
		return rows[i].seq > rows[j].seq
	})
	return toDeliveries(rows), nil
}

func (s *Store) DeliveriesBetween(_ context.Context, from, to time.Time) ([]*model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]deliveryRow, 0)
	for _, row := range s.deliveries {
		date := row.delivery.Date
		if !date.Before(from) && date.Before(to) {
			rows = append(rows, row)
		}
	}
	return toDeliveries(rows), nil
}

func toDeliveries(rows []deliveryRow) []*model.Delivery {
	out := make([]*model.Delivery, 0, len(rows))
	for _, row := range rows {
		d := row.delivery
		out = append(out, &d)
	}
	return out
}

// RunInTx runs fn against a view of the store that records how to revert
// each mutation. If fn fails the recorded mutations are reverted newest first.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	tx := &txStore{Store: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// txStore shadows the mutating methods of Store to collect undo actions
type txStore struct {
	*Store
	undo []func()
}

func (t *txStore) InsertCustomer(_ context.Context, c *model.Customer) error {
	undo, err := t.insertCustomer(c)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, undo)
	return nil
}

func (t *txStore) GrantCoupons(_ context.Context, id int64, amount, limit int) (int, int, error) {
	balance, granted, undo, err := t.grantCoupons(id, amount, limit)
	if err != nil {
		return 0, 0, err
	}
	t.undo = append(t.undo, undo)
	return balance, granted, nil
}

func (t *txStore) ConsumeCoupons(_ context.Context, id int64, amount int) (int, error) {
	balance, undo, err := t.consumeCoupons(id, amount)
	if err != nil {
		return 0, err
	}
	t.undo = append(t.undo, undo)
	return balance, nil
}

func (t *txStore) InsertDelivery(_ context.Context, d *model.Delivery) error {
	undo, err := t.insertDelivery(d)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, undo)
	return nil
}

// RunInTx on a transaction joins it
func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	return fn(ctx, t)
}

func (t *txStore) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}
