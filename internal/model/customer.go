package model

// MaxCoupons is the upper bound of a customer's coupon balance.
const MaxCoupons = 10

// Customer represents a registered customer in the database
type Customer struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Phone   string `db:"phone" json:"phone"`
	Coupons int    `db:"coupons" json:"coupons"`
}

// CustomerRef is the identity subset of a customer shown next to a delivery
type CustomerRef struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
