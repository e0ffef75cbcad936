package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/kkkkikiki/coupon-ledger/internal/api/ledgerv1"
	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/metrics"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

// compile-time interface check
var _ ledgerv1.LedgerServiceHandler = (*LedgerServer)(nil)

// LedgerServer implements the ledger RPC service
type LedgerServer struct {
	ledger *ledger.Service
	log    *zap.Logger
}

// NewLedgerServer creates a new LedgerServer instance
func NewLedgerServer(svc *ledger.Service, log *zap.Logger) *LedgerServer {
	return &LedgerServer{
		ledger: svc,
		log:    log.Named("rpc"),
	}
}

// observe records the duration of an operation once it finishes
func observe(operation string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "failed"
	}
	metrics.RecordOperationDuration(operation, status, time.Since(start).Seconds())
}

// CreateCustomer registers a new customer
func (s *LedgerServer) CreateCustomer(
	ctx context.Context,
	req *connect.Request[ledgerv1.CreateCustomerRequest],
) (_ *connect.Response[ledgerv1.CreateCustomerResponse], err error) {
	defer observe("create_customer", time.Now(), &err)

	if err := ledgerv1.Validate(req.Msg); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	customer, err := s.ledger.Customers.Register(ctx, req.Msg.Id, req.Msg.Name, req.Msg.Phone, req.Msg.Coupons)
	if err != nil {
		s.log.Warn("Failed to register customer", zap.Int64("customer_id", req.Msg.Id), zap.Error(err))
		return nil, toConnectError(err)
	}

	s.log.Info("Customer registered", zap.Int64("customer_id", customer.ID), zap.Int("coupons", customer.Coupons))

	return connect.NewResponse(&ledgerv1.CreateCustomerResponse{
		Customer: toAPICustomer(customer),
	}), nil
}

// GetCustomer returns a single customer
func (s *LedgerServer) GetCustomer(
	ctx context.Context,
	req *connect.Request[ledgerv1.GetCustomerRequest],
) (_ *connect.Response[ledgerv1.GetCustomerResponse], err error) {
	defer observe("get_customer", time.Now(), &err)

	if err := ledgerv1.Validate(req.Msg); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	customer, err := s.ledger.Customers.Get(ctx, req.Msg.CustomerId)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&ledgerv1.GetCustomerResponse{
		Customer: toAPICustomer(customer),
	}), nil
}

// ListCustomers returns every customer
func (s *LedgerServer) ListCustomers(
	ctx context.Context,
	_ *connect.Request[ledgerv1.ListCustomersRequest],
) (_ *connect.Response[ledgerv1.ListCustomersResponse], err error) {
	defer observe("list_customers", time.Now(), &err)

	customers, err := s.ledger.Customers.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*ledgerv1.Customer, 0, len(customers))
	for _, c := range customers {
		out = append(out, toAPICustomer(c))
	}

	return connect.NewResponse(&ledgerv1.ListCustomersResponse{Customers: out}), nil
}

// GrantCoupons tops up a customer's coupon balance
func (s *LedgerServer) GrantCoupons(
	ctx context.Context,
	req *connect.Request[ledgerv1.GrantCouponsRequest],
) (_ *connect.Response[ledgerv1.GrantCouponsResponse], err error) {
	defer observe("grant_coupons", time.Now(), &err)

	if err := ledgerv1.Validate(req.Msg); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	amount := req.Msg.Amount
	if amount == 0 {
		amount = ledger.DefaultGrant
	}

	balance, granted, err := s.ledger.Customers.Grant(ctx, req.Msg.CustomerId, amount)
	if err != nil {
		s.log.Warn("Failed to grant coupons", zap.Int64("customer_id", req.Msg.CustomerId), zap.Error(err))
		return nil, toConnectError(err)
	}

	metrics.CouponsGranted.Add(float64(granted))
	s.log.Info("Coupons granted",
		zap.Int64("customer_id", req.Msg.CustomerId),
		zap.Int("granted", granted),
		zap.Int("coupons", balance))

	return connect.NewResponse(&ledgerv1.GrantCouponsResponse{Coupons: balance}), nil
}

// RecordDelivery consumes a coupon and logs the delivery
func (s *LedgerServer) RecordDelivery(
	ctx context.Context,
	req *connect.Request[ledgerv1.RecordDeliveryRequest],
) (_ *connect.Response[ledgerv1.RecordDeliveryResponse], err error) {
	defer observe("record_delivery", time.Now(), &err)

	if err := ledgerv1.Validate(req.Msg); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	var date time.Time
	if req.Msg.Date != "" {
		date, err = model.ParseDay(req.Msg.Date)
		if err != nil {
			return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
		}
	}
	bottles := ledger.DefaultBottles
	if req.Msg.Bottles != nil {
		bottles = *req.Msg.Bottles
	}

	delivery, err := s.ledger.RecordDelivery(ctx, req.Msg.CustomerId, date, bottles)
	if err != nil {
		s.log.Warn("Failed to record delivery", zap.Int64("customer_id", req.Msg.CustomerId), zap.Error(err))
		return nil, toConnectError(err)
	}

	metrics.CouponsConsumed.Add(ledger.DefaultConsume)
	metrics.DeliveriesRecorded.Inc()
	s.log.Info("Delivery recorded",
		zap.Int64("customer_id", delivery.CustomerID),
		zap.String("date", model.FormatDay(delivery.Date)))

	return connect.NewResponse(&ledgerv1.RecordDeliveryResponse{
		Delivery: toAPIDelivery(delivery),
	}), nil
}

// GetCustomerHistory returns a customer and its deliveries, most recent first
func (s *LedgerServer) GetCustomerHistory(
	ctx context.Context,
	req *connect.Request[ledgerv1.GetCustomerHistoryRequest],
) (_ *connect.Response[ledgerv1.GetCustomerHistoryResponse], err error) {
	defer observe("get_customer_history", time.Now(), &err)

	if err := ledgerv1.Validate(req.Msg); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	details, err := s.ledger.Details(ctx, req.Msg.CustomerId)
	if err != nil {
		return nil, toConnectError(err)
	}

	deliveries := make([]*ledgerv1.Delivery, 0, len(details.Deliveries))
	for _, d := range details.Deliveries {
		deliveries = append(deliveries, toAPIDelivery(d))
	}

	return connect.NewResponse(&ledgerv1.GetCustomerHistoryResponse{
		Customer:   toAPICustomer(details.Customer),
		Deliveries: deliveries,
	}), nil
}

// ListDeliveries returns the delivery summary of one calendar day
func (s *LedgerServer) ListDeliveries(
	ctx context.Context,
	req *connect.Request[ledgerv1.ListDeliveriesRequest],
) (_ *connect.Response[ledgerv1.ListDeliveriesResponse], err error) {
	defer observe("list_deliveries", time.Now(), &err)

	if err := ledgerv1.Validate(req.Msg); err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	day, err := model.ParseDay(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("%w: %w", ledger.ErrInvalidInput, err))
	}

	entries, err := s.ledger.Summarize(ctx, day)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*ledgerv1.SummaryEntry, 0, len(entries))
	for _, e := range entries {
		entry := &ledgerv1.SummaryEntry{Delivery: toAPIDelivery(e.Delivery)}
		if e.Customer != nil {
			entry.Customer = &ledgerv1.CustomerRef{Name: e.Customer.Name, Phone: e.Customer.Phone}
		}
		out = append(out, entry)
	}

	return connect.NewResponse(&ledgerv1.ListDeliveriesResponse{
		Date:    model.FormatDay(day),
		Entries: out,
	}), nil
}

// toConnectError maps ledger errors to Connect status codes
func toConnectError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ledger.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ledger.ErrDuplicateKey):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, ledger.ErrLimitReached):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toAPICustomer(c *model.Customer) *ledgerv1.Customer {
	return &ledgerv1.Customer{
		Id:      c.ID,
		Name:    c.Name,
		Phone:   c.Phone,
		Coupons: c.Coupons,
	}
}

func toAPIDelivery(d *model.Delivery) *ledgerv1.Delivery {
	return &ledgerv1.Delivery{
		CustomerId:       d.CustomerID,
		Date:             model.FormatDay(d.Date),
		BottlesDelivered: d.BottlesDelivered,
	}
}
