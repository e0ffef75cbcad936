// Package mongo implements ledger.Store on MongoDB using the "customer" and
// "delivery" collections. RecordDelivery transactions need a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// Collection name constants.
const (
	colCustomers  = "customer"
	colDeliveries = "delivery"
)

// compile-time interface check
var _ ledger.Store = (*Store)(nil)

// Store implements ledger.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	inTx   bool
}

// New creates a store over the named database.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Migrate creates indexes for both collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) customers() *mongo.Collection  { return s.db.Collection(colCustomers) }
func (s *Store) deliveries() *mongo.Collection { return s.db.Collection(colDeliveries) }

// ==================== Customers ====================

func (s *Store) InsertCustomer(ctx context.Context, c *model.Customer) error {
	_, err := s.customers().InsertOne(ctx, toCustomerModel(c))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicateKey
		}
		return storageError("insert customer", err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var m customerModel
	err := s.customers().FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, storageError("get customer", err)
	}
	return fromCustomerModel(&m), nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	return s.findCustomers(ctx, bson.D{})
}

func (s *Store) GetCustomersByIDs(ctx context.Context, ids []int64) ([]*model.Customer, error) {
	if len(ids) == 0 {
		return []*model.Customer{}, nil
	}
	filter := bson.D{{Key: "id", Value: bson.D{{Key: "$in", Value: ids}}}}
	return s.findCustomers(ctx, filter)
}

func (s *Store) findCustomers(ctx context.Context, filter bson.D) ([]*model.Customer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.customers().Find(ctx, filter, opts)
	if err != nil {
		return nil, storageError("find customers", err)
	}

	var models []customerModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, storageError("decode customers", err)
	}

	out := make([]*model.Customer, 0, len(models))
	for i := range models {
		out = append(out, fromCustomerModel(&models[i]))
	}
	return out, nil
}

// GrantCoupons uses an aggregation-pipeline update so the saturating
// addition is evaluated by the server against the current balance. The
// pre-update document is returned, and the filter guarantees it was below
// limit, so the new balance follows from it.
func (s *Store) GrantCoupons(ctx context.Context, id int64, amount, limit int) (int, int, error) {
	filter := bson.D{
		{Key: "id", Value: id},
		{Key: "coupons", Value: bson.D{{Key: "$lt", Value: limit}}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "coupons", Value: bson.D{{Key: "$min", Value: bson.A{
				bson.D{{Key: "$add", Value: bson.A{"$coupons", amount}}},
				limit,
			}}}},
		}}},
	}

	previous, err := s.updateBalance(ctx, id, filter, update, options.Before, ledger.ErrLimitReached)
	if err != nil {
		return 0, 0, err
	}
	balance := min(previous+amount, limit)
	return balance, balance - previous, nil
}

func (s *Store) ConsumeCoupons(ctx context.Context, id int64, amount int) (int, error) {
	filter := bson.D{
		{Key: "id", Value: id},
		{Key: "coupons", Value: bson.D{{Key: "$gte", Value: amount}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "coupons", Value: -amount}}}}

	return s.updateBalance(ctx, id, filter, update, options.After, ledger.ErrInsufficientBalance)
}

// updateBalance applies a conditional update and returns the balance of the
// document selected by ret. When the filter matches nothing it reports
// ErrNotFound or rejected.
func (s *Store) updateBalance(ctx context.Context, id int64, filter bson.D, update any, ret options.ReturnDocument, rejected error) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(ret)

	var m customerModel
	err := s.customers().FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if err == nil {
		return m.Coupons, nil
	}
	if !isNoDocuments(err) {
		return 0, storageError("update coupons", err)
	}

	n, err := s.customers().CountDocuments(ctx, bson.D{{Key: "id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return 0, storageError("check customer", err)
	}
	if n == 0 {
		return 0, ledger.ErrNotFound
	}
	return 0, rejected
}

// ==================== Deliveries ====================

func (s *Store) InsertDelivery(ctx context.Context, d *model.Delivery) error {
	if _, err := s.deliveries().InsertOne(ctx, toDeliveryModel(d)); err != nil {
		return storageError("insert delivery", err)
	}
	return nil
}

func (s *Store) DeliveriesByCustomer(ctx context.Context, customerID int64) ([]*model.Delivery, error) {
	filter := bson.D{{Key: "customer_id", Value: customerID}}
	sort := bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}
	return s.findDeliveries(ctx, filter, sort)
}

func (s *Store) DeliveriesBetween(ctx context.Context, from, to time.Time) ([]*model.Delivery, error) {
	filter := bson.D{{Key: "date", Value: bson.D{
		{Key: "$gte", Value: from},
		{Key: "$lt", Value: to},
	}}}
	return s.findDeliveries(ctx, filter, bson.D{{Key: "_id", Value: 1}})
}

func (s *Store) findDeliveries(ctx context.Context, filter, sort bson.D) ([]*model.Delivery, error) {
	cursor, err := s.deliveries().Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, storageError("find deliveries", err)
	}

	var models []deliveryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, storageError("decode deliveries", err)
	}

	out := make([]*model.Delivery, 0, len(models))
	for i := range models {
		out = append(out, fromDeliveryModel(&models[i]))
	}
	return out, nil
}

// ==================== Core ====================

// RunInTx runs fn inside a session transaction. Calls on a transactional
// store join the running transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return storageError("start session", err)
	}
	defer session.EndSession(ctx)

	txStore := &Store{client: s.client, db: s.db, inTx: true}
	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, txStore)
	})
	return err
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func storageError(op string, err error) error {
	return fmt.Errorf("mongo: %s: %w: %w", op, ledger.ErrStorageUnavailable, err)
}

// migrationIndexes returns the index definitions for both collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCustomers: {
			{
				Keys:    bson.D{{Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colDeliveries: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
	}
}
