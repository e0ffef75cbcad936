package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

type customerModel struct {
	ObjectID  bson.ObjectID `bson:"_id,omitempty"`
	ID        int64         `bson:"id"`
	Name      string        `bson:"name"`
	Phone     string        `bson:"phone"`
	Coupons   int           `bson:"coupons"`
	CreatedAt time.Time     `bson:"created_at"`
}

func toCustomerModel(c *model.Customer) *customerModel {
	return &customerModel{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Coupons:   c.Coupons,
		CreatedAt: time.Now().UTC(),
	}
}

func fromCustomerModel(m *customerModel) *model.Customer {
	return &model.Customer{
		ID:      m.ID,
		Name:    m.Name,
		Phone:   m.Phone,
		Coupons: m.Coupons,
	}
}

type deliveryModel struct {
	ObjectID         bson.ObjectID `bson:"_id,omitempty"`
	CustomerID       int64         `bson:"customer_id"`
	Date             time.Time     `bson:"date"`
	BottlesDelivered int           `bson:"bottles_delivered"`
}

func toDeliveryModel(d *model.Delivery) *deliveryModel {
	return &deliveryModel{
		CustomerID:       d.CustomerID,
		Date:             model.DayOf(d.Date),
		BottlesDelivered: d.BottlesDelivered,
	}
}

func fromDeliveryModel(m *deliveryModel) *model.Delivery {
	return &model.Delivery{
		CustomerID:       m.CustomerID,
		Date:             model.DayOf(m.Date),
		BottlesDelivered: m.BottlesDelivered,
	}
}
