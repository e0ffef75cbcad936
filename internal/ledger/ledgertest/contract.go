// Package ledgertest holds the behaviour every ledger.Store implementation
// must share, run by each backend's tests.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) ledger.Store

var (
	march14 = time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	march15 = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	march16 = time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)
)

// RunStoreTests exercises a store implementation against the ledger.Store contract
func RunStoreTests(t *testing.T, newStore Factory) {
	t.Run("customers", func(t *testing.T) { testCustomers(t, newStore(t)) })
	t.Run("grant", func(t *testing.T) { testGrant(t, newStore(t)) })
	t.Run("consume", func(t *testing.T) { testConsume(t, newStore(t)) })
	t.Run("deliveries", func(t *testing.T) { testDeliveries(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("concurrent consume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
}

func insert(t *testing.T, s ledger.Store, id int64, coupons int) {
	t.Helper()
	require.NoError(t, s.InsertCustomer(context.Background(), &model.Customer{
		ID: id, Name: "name", Phone: "phone", Coupons: coupons,
	}))
}

func balance(t *testing.T, s ledger.Store, id int64) int {
	t.Helper()
	c, err := s.GetCustomer(context.Background(), id)
	require.NoError(t, err)
	return c.Coupons
}

func testCustomers(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	require.NoError(t, s.InsertCustomer(ctx, &model.Customer{ID: 20, Name: "B", Phone: "2", Coupons: 1}))
	require.NoError(t, s.InsertCustomer(ctx, &model.Customer{ID: 10, Name: "A", Phone: "1", Coupons: 0}))

	err := s.InsertCustomer(ctx, &model.Customer{ID: 10, Name: "dup", Phone: "3"})
	require.ErrorIs(t, err, ledger.ErrDuplicateKey)

	got, err := s.GetCustomer(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, &model.Customer{ID: 10, Name: "A", Phone: "1", Coupons: 0}, got)

	_, err = s.GetCustomer(ctx, 30)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(20), all[0].ID)
	assert.Equal(t, int64(10), all[1].ID)

	some, err := s.GetCustomersByIDs(ctx, []int64{10, 99})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "A", some[0].Name)
}

func testGrant(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	insert(t, s, 1, 5)

	got, granted, err := s.GrantCoupons(ctx, 1, 3, model.MaxCoupons)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
	assert.Equal(t, 3, granted)

	got, granted, err = s.GrantCoupons(ctx, 1, 10, model.MaxCoupons)
	require.NoError(t, err)
	assert.Equal(t, model.MaxCoupons, got)
	assert.Equal(t, 2, granted)

	_, _, err = s.GrantCoupons(ctx, 1, 10, model.MaxCoupons)
	require.ErrorIs(t, err, ledger.ErrLimitReached)
	assert.Equal(t, model.MaxCoupons, balance(t, s, 1))

	_, _, err = s.GrantCoupons(ctx, 2, 10, model.MaxCoupons)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func testConsume(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	insert(t, s, 1, 2)

	got, err := s.ConsumeCoupons(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	_, err = s.ConsumeCoupons(ctx, 1, 1)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, 0, balance(t, s, 1))

	_, err = s.ConsumeCoupons(ctx, 2, 1)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func testDeliveries(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	rows := []model.Delivery{
		{CustomerID: 1, Date: march14, BottlesDelivered: 1},
		{CustomerID: 1, Date: march16, BottlesDelivered: 2},
		{CustomerID: 2, Date: march15, BottlesDelivered: 3},
		{CustomerID: 1, Date: march15, BottlesDelivered: 4},
	}
	for i := range rows {
		require.NoError(t, s.InsertDelivery(ctx, &rows[i]))
	}

	history, err := s.DeliveriesByCustomer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Date.Equal(march16))
	assert.True(t, history[1].Date.Equal(march15))
	assert.True(t, history[2].Date.Equal(march14))
	assert.Equal(t, 4, history[1].BottlesDelivered)

	day, err := s.DeliveriesBetween(ctx, march15, march16)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.ElementsMatch(t, []int{3, 4}, []int{day[0].BottlesDelivered, day[1].BottlesDelivered})
	for _, d := range day {
		assert.Equal(t, "2024-03-15", model.FormatDay(d.Date))
	}

	none, err := s.DeliveriesByCustomer(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	insert(t, s, 1, 3)
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		if _, err := tx.ConsumeCoupons(ctx, 1, 1); err != nil {
			return err
		}
		if err := tx.InsertDelivery(ctx, &model.Delivery{CustomerID: 1, Date: march15, BottlesDelivered: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, balance(t, s, 1))

	history, err := s.DeliveriesByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = s.RunInTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		if _, err := tx.ConsumeCoupons(ctx, 1, 1); err != nil {
			return err
		}
		return tx.InsertDelivery(ctx, &model.Delivery{CustomerID: 1, Date: march15, BottlesDelivered: 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, balance(t, s, 1))

	history, err = s.DeliveriesByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func testConcurrentConsume(t *testing.T, s ledger.Store) {
	const (
		start = 5
		calls = 20
	)
	ctx := context.Background()
	insert(t, s, 1, start)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		other     []error
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumeCoupons(ctx, 1, 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ledger.ErrInsufficientBalance):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, start, successes)
	assert.Equal(t, 0, balance(t, s, 1))
}
