// Package ledgerv1 defines the ledger.v1.LedgerService RPC messages and the
// Connect handler and client that carry them as JSON.
package ledgerv1

// Customer is the wire form of a customer
type Customer struct {
	Id      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Coupons int    `json:"coupons"`
}

// Delivery is the wire form of a delivery record. Date is YYYY-MM-DD.
type Delivery struct {
	CustomerId       int64  `json:"customer_id"`
	Date             string `json:"date"`
	BottlesDelivered int    `json:"bottles_delivered"`
}

// CustomerRef identifies the customer of a summary entry
type CustomerRef struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SummaryEntry is a delivery joined with its customer, which is null for
// deliveries referencing an unknown customer
type SummaryEntry struct {
	Delivery *Delivery    `json:"delivery"`
	Customer *CustomerRef `json:"customer"`
}

type CreateCustomerRequest struct {
	Id      int64  `json:"id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Coupons int    `json:"coupons" validate:"gte=0,lte=10"`
}

type CreateCustomerResponse struct {
	Customer *Customer `json:"customer"`
}

type GetCustomerRequest struct {
	CustomerId int64 `json:"customer_id" validate:"required,gt=0"`
}

type GetCustomerResponse struct {
	Customer *Customer `json:"customer"`
}

type ListCustomersRequest struct{}

type ListCustomersResponse struct {
	Customers []*Customer `json:"customers"`
}

// GrantCouponsRequest tops up a balance. Amount 0 grants the default top-up.
type GrantCouponsRequest struct {
	CustomerId int64 `json:"customer_id" validate:"required,gt=0"`
	Amount     int   `json:"amount" validate:"gte=0,lte=2147483647"`
}

type GrantCouponsResponse struct {
	Coupons int `json:"coupons"`
}

// RecordDeliveryRequest records a delivery. An empty Date means today and a
// nil Bottles means one bottle.
type RecordDeliveryRequest struct {
	CustomerId int64  `json:"customer_id" validate:"required,gt=0"`
	Date       string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Bottles    *int   `json:"bottles,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
}

type RecordDeliveryResponse struct {
	Delivery *Delivery `json:"delivery"`
}

type GetCustomerHistoryRequest struct {
	CustomerId int64 `json:"customer_id" validate:"required,gt=0"`
}

type GetCustomerHistoryResponse struct {
	Customer   *Customer   `json:"customer"`
	Deliveries []*Delivery `json:"deliveries"`
}

type ListDeliveriesRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type ListDeliveriesResponse struct {
	Date    string          `json:"date"`
	Entries []*SummaryEntry `json:"entries"`
}
