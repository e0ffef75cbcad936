package ledger_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
	"github.com/kkkkikiki/coupon-ledger/internal/repository/memory"
)

func newCustomerLedger(t *testing.T) (*ledger.CustomerLedger, *memory.Store) {
	t.Helper()
	store := memory.New()
	return ledger.NewCustomerLedger(store), store
}

func register(t *testing.T, l *ledger.CustomerLedger, id int64, coupons int) *model.Customer {
	t.Helper()
	c, err := l.Register(context.Background(), id, "Customer", "555-0100", coupons)
	require.NoError(t, err)
	return c
}

func TestRegister_Success(t *testing.T) {
	l, _ := newCustomerLedger(t)

	c, err := l.Register(context.Background(), 7, "  Asha ", " 555-0107 ", 3)
	require.NoError(t, err)
	assert.Equal(t, &model.Customer{ID: 7, Name: "Asha", Phone: "555-0107", Coupons: 3}, c)

	got, err := l.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		cname   string
		phone   string
		coupons int
	}{
		{name: "zero id", id: 0, cname: "A", phone: "1"},
		{name: "negative id", id: -4, cname: "A", phone: "1"},
		{name: "empty name", id: 1, cname: "", phone: "1"},
		{name: "blank name", id: 1, cname: "   ", phone: "1"},
		{name: "empty phone", id: 1, cname: "A", phone: ""},
		{name: "negative coupons", id: 1, cname: "A", phone: "1", coupons: -1},
		{name: "coupons above cap", id: 1, cname: "A", phone: "1", coupons: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := newCustomerLedger(t)

			_, err := l.Register(context.Background(), tt.id, tt.cname, tt.phone, tt.coupons)
			require.ErrorIs(t, err, ledger.ErrInvalidInput)

			all, err := store.ListCustomers(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestRegister_DuplicateKeyKeepsFirstCustomer(t *testing.T) {
	l, _ := newCustomerLedger(t)
	ctx := context.Background()

	first, err := l.Register(ctx, 1, "First", "111", 4)
	require.NoError(t, err)

	_, err = l.Register(ctx, 1, "Second", "222", 9)
	require.ErrorIs(t, err, ledger.ErrDuplicateKey)

	got, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestGrant(t *testing.T) {
	tests := []struct {
		name        string
		start       int
		amount      int
		want        int
		wantGranted int
		wantErr     error
	}{
		{name: "empty balance", start: 0, amount: 10, want: 10, wantGranted: 10},
		{name: "saturates at cap", start: 5, amount: 10, want: 10, wantGranted: 5},
		{name: "partial amount", start: 2, amount: 3, want: 5, wantGranted: 3},
		{name: "one below cap", start: 9, amount: 10, want: 10, wantGranted: 1},
		{name: "huge amount saturates", start: 5, amount: math.MaxInt, want: 10, wantGranted: 5},
		{name: "huge amount on empty balance", start: 0, amount: math.MaxInt - 1, want: 10, wantGranted: 10},
		{name: "already at cap", start: 10, amount: 10, wantErr: ledger.ErrLimitReached},
		{name: "zero amount", start: 3, amount: 0, wantErr: ledger.ErrInvalidInput},
		{name: "negative amount", start: 3, amount: -2, wantErr: ledger.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newCustomerLedger(t)
			ctx := context.Background()
			register(t, l, 1, tt.start)

			balance, granted, err := l.Grant(ctx, 1, tt.amount)
			got, getErr := l.Get(ctx, 1)
			require.NoError(t, getErr)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.start, got.Coupons, "balance must be unchanged")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, balance)
			assert.Equal(t, tt.wantGranted, granted)
			assert.Equal(t, tt.want, got.Coupons)
		})
	}
}

func TestGrant_UnknownCustomer(t *testing.T) {
	l, _ := newCustomerLedger(t)

	_, _, err := l.Grant(context.Background(), 42, ledger.DefaultGrant)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestConsume(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		amount  int
		want    int
		wantErr error
	}{
		{name: "one coupon", start: 3, amount: 1, want: 2},
		{name: "whole balance", start: 4, amount: 4, want: 0},
		{name: "empty balance", start: 0, amount: 1, wantErr: ledger.ErrInsufficientBalance},
		{name: "more than balance", start: 2, amount: 3, wantErr: ledger.ErrInsufficientBalance},
		{name: "zero amount", start: 2, amount: 0, wantErr: ledger.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newCustomerLedger(t)
			ctx := context.Background()
			register(t, l, 1, tt.start)

			balance, err := l.Consume(ctx, 1, tt.amount)
			got, getErr := l.Get(ctx, 1)
			require.NoError(t, getErr)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.start, got.Coupons)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, balance)
			assert.Equal(t, tt.want, got.Coupons)
		})
	}
}

func TestConsume_UnknownCustomer(t *testing.T) {
	l, _ := newCustomerLedger(t)

	_, err := l.Consume(context.Background(), 42, 1)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestGet_UnknownCustomer(t *testing.T) {
	l, _ := newCustomerLedger(t)

	_, err := l.Get(context.Background(), 3)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestList_InsertionOrder(t *testing.T) {
	l, _ := newCustomerLedger(t)
	for _, id := range []int64{30, 10, 20} {
		register(t, l, id, 0)
	}

	customers, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, int64(30), customers[0].ID)
	assert.Equal(t, int64(10), customers[1].ID)
	assert.Equal(t, int64(20), customers[2].ID)
}

func TestBalanceStaysWithinBounds(t *testing.T) {
	l, _ := newCustomerLedger(t)
	ctx := context.Background()
	register(t, l, 1, 0)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 {
			l.Grant(ctx, 1, 1+rng.Intn(12))
		} else if rng.Intn(10) == 0 {
			l.Grant(ctx, 1, math.MaxInt-rng.Intn(10))
		} else {
			l.Consume(ctx, 1, 1+rng.Intn(3))
		}

		c, err := l.Get(ctx, 1)
		require.NoError(t, err)
		require.GreaterOrEqual(t, c.Coupons, 0)
		require.LessOrEqual(t, c.Coupons, model.MaxCoupons)
	}
}

func TestConsume_ConcurrentCallsNeverOverdraw(t *testing.T) {
	const (
		start = 7
		calls = 50
	)
	l, _ := newCustomerLedger(t)
	ctx := context.Background()
	register(t, l, 1, start)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
		other        []error
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Consume(ctx, 1, 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ledger.ErrInsufficientBalance):
				insufficient++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, start, successes)
	assert.Equal(t, calls-start, insufficient)

	c, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Coupons)
}
