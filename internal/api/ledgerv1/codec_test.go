package ledgerv1

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	bottles := -1
	tooManyBottles := 3_000_000_000
	maxBottles := math.MaxInt32

	tests := []struct {
		name    string
		msg     any
		wantErr string
	}{
		{name: "valid customer", msg: &CreateCustomerRequest{Id: 1, Name: "a", Phone: "b", Coupons: 10}},
		{name: "missing id", msg: &CreateCustomerRequest{Name: "a", Phone: "b"}, wantErr: "Id must satisfy required"},
		{name: "too many coupons", msg: &CreateCustomerRequest{Id: 1, Name: "a", Phone: "b", Coupons: 11}, wantErr: "Coupons must satisfy lte=10"},
		{name: "delivery defaults", msg: &RecordDeliveryRequest{CustomerId: 1}},
		{name: "delivery bad date", msg: &RecordDeliveryRequest{CustomerId: 1, Date: "2024/01/01"}, wantErr: "Date must satisfy datetime=2006-01-02"},
		{name: "delivery negative bottles", msg: &RecordDeliveryRequest{CustomerId: 1, Bottles: &bottles}, wantErr: "Bottles must satisfy gte=0"},
		{name: "summary without date", msg: &ListDeliveriesRequest{}, wantErr: "Date must satisfy required"},
		{name: "too many bottles", msg: &RecordDeliveryRequest{CustomerId: 1, Bottles: &tooManyBottles}, wantErr: "Bottles must satisfy lte=2147483647"},
		{name: "bottles at column limit", msg: &RecordDeliveryRequest{CustomerId: 1, Bottles: &maxBottles}},
		{name: "negative grant", msg: &GrantCouponsRequest{CustomerId: 1, Amount: -1}, wantErr: "Amount must satisfy gte=0"},
		{name: "grant above column limit", msg: &GrantCouponsRequest{CustomerId: 1, Amount: math.MaxInt32 + 1}, wantErr: "Amount must satisfy lte=2147483647"},
		{name: "large grant within limit", msg: &GrantCouponsRequest{CustomerId: 1, Amount: math.MaxInt32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.msg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&RecordDeliveryRequest{CustomerId: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer_id":3}`, string(data))

	var req RecordDeliveryRequest
	require.NoError(t, codec.Unmarshal([]byte(`{"customer_id":4,"date":"2024-03-15","bottles":2}`), &req))
	assert.Equal(t, int64(4), req.CustomerId)
	assert.Equal(t, "2024-03-15", req.Date)
	require.NotNil(t, req.Bottles)
	assert.Equal(t, 2, *req.Bottles)
}
