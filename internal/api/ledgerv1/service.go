package ledgerv1

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "ledger.v1.LedgerService"

// Procedure paths of the LedgerService RPCs.
const (
	LedgerServiceCreateCustomerProcedure     = "/ledger.v1.LedgerService/CreateCustomer"
	LedgerServiceGetCustomerProcedure        = "/ledger.v1.LedgerService/GetCustomer"
	LedgerServiceListCustomersProcedure      = "/ledger.v1.LedgerService/ListCustomers"
	LedgerServiceGrantCouponsProcedure       = "/ledger.v1.LedgerService/GrantCoupons"
	LedgerServiceRecordDeliveryProcedure     = "/ledger.v1.LedgerService/RecordDelivery"
	LedgerServiceGetCustomerHistoryProcedure = "/ledger.v1.LedgerService/GetCustomerHistory"
	LedgerServiceListDeliveriesProcedure     = "/ledger.v1.LedgerService/ListDeliveries"
)

// LedgerServiceHandler is implemented by the server side of LedgerService.
type LedgerServiceHandler interface {
	CreateCustomer(context.Context, *connect.Request[CreateCustomerRequest]) (*connect.Response[CreateCustomerResponse], error)
	GetCustomer(context.Context, *connect.Request[GetCustomerRequest]) (*connect.Response[GetCustomerResponse], error)
	ListCustomers(context.Context, *connect.Request[ListCustomersRequest]) (*connect.Response[ListCustomersResponse], error)
	GrantCoupons(context.Context, *connect.Request[GrantCouponsRequest]) (*connect.Response[GrantCouponsResponse], error)
	RecordDelivery(context.Context, *connect.Request[RecordDeliveryRequest]) (*connect.Response[RecordDeliveryResponse], error)
	GetCustomerHistory(context.Context, *connect.Request[GetCustomerHistoryRequest]) (*connect.Response[GetCustomerHistoryResponse], error)
	ListDeliveries(context.Context, *connect.Request[ListDeliveriesRequest]) (*connect.Response[ListDeliveriesResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LedgerServiceCreateCustomerProcedure,
		connect.NewUnaryHandler(LedgerServiceCreateCustomerProcedure, svc.CreateCustomer, opts...))
	mux.Handle(LedgerServiceGetCustomerProcedure,
		connect.NewUnaryHandler(LedgerServiceGetCustomerProcedure, svc.GetCustomer, opts...))
	mux.Handle(LedgerServiceListCustomersProcedure,
		connect.NewUnaryHandler(LedgerServiceListCustomersProcedure, svc.ListCustomers, opts...))
	mux.Handle(LedgerServiceGrantCouponsProcedure,
		connect.NewUnaryHandler(LedgerServiceGrantCouponsProcedure, svc.GrantCoupons, opts...))
	mux.Handle(LedgerServiceRecordDeliveryProcedure,
		connect.NewUnaryHandler(LedgerServiceRecordDeliveryProcedure, svc.RecordDelivery, opts...))
	mux.Handle(LedgerServiceGetCustomerHistoryProcedure,
		connect.NewUnaryHandler(LedgerServiceGetCustomerHistoryProcedure, svc.GetCustomerHistory, opts...))
	mux.Handle(LedgerServiceListDeliveriesProcedure,
		connect.NewUnaryHandler(LedgerServiceListDeliveriesProcedure, svc.ListDeliveries, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient is a client for the LedgerService.
type LedgerServiceClient struct {
	createCustomer     *connect.Client[CreateCustomerRequest, CreateCustomerResponse]
	getCustomer        *connect.Client[GetCustomerRequest, GetCustomerResponse]
	listCustomers      *connect.Client[ListCustomersRequest, ListCustomersResponse]
	grantCoupons       *connect.Client[GrantCouponsRequest, GrantCouponsResponse]
	recordDelivery     *connect.Client[RecordDeliveryRequest, RecordDeliveryResponse]
	getCustomerHistory *connect.Client[GetCustomerHistoryRequest, GetCustomerHistoryResponse]
	listDeliveries     *connect.Client[ListDeliveriesRequest, ListDeliveriesResponse]
}

// NewLedgerServiceClient constructs a client for the LedgerService at baseURL
// (for example, http://localhost:8000).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)

	return &LedgerServiceClient{
		createCustomer: connect.NewClient[CreateCustomerRequest, CreateCustomerResponse](
			httpClient, baseURL+LedgerServiceCreateCustomerProcedure, opts...),
		getCustomer: connect.NewClient[GetCustomerRequest, GetCustomerResponse](
			httpClient, baseURL+LedgerServiceGetCustomerProcedure, opts...),
		listCustomers: connect.NewClient[ListCustomersRequest, ListCustomersResponse](
			httpClient, baseURL+LedgerServiceListCustomersProcedure, opts...),
		grantCoupons: connect.NewClient[GrantCouponsRequest, GrantCouponsResponse](
			httpClient, baseURL+LedgerServiceGrantCouponsProcedure, opts...),
		recordDelivery: connect.NewClient[RecordDeliveryRequest, RecordDeliveryResponse](
			httpClient, baseURL+LedgerServiceRecordDeliveryProcedure, opts...),
		getCustomerHistory: connect.NewClient[GetCustomerHistoryRequest, GetCustomerHistoryResponse](
			httpClient, baseURL+LedgerServiceGetCustomerHistoryProcedure, opts...),
		listDeliveries: connect.NewClient[ListDeliveriesRequest, ListDeliveriesResponse](
			httpClient, baseURL+LedgerServiceListDeliveriesProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateCustomer(ctx context.Context, req *connect.Request[CreateCustomerRequest]) (*connect.Response[CreateCustomerResponse], error) {
	return c.createCustomer.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetCustomer(ctx context.Context, req *connect.Request[GetCustomerRequest]) (*connect.Response[GetCustomerResponse], error) {
	return c.getCustomer.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListCustomers(ctx context.Context, req *connect.Request[ListCustomersRequest]) (*connect.Response[ListCustomersResponse], error) {
	return c.listCustomers.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GrantCoupons(ctx context.Context, req *connect.Request[GrantCouponsRequest]) (*connect.Response[GrantCouponsResponse], error) {
	return c.grantCoupons.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordDelivery(ctx context.Context, req *connect.Request[RecordDeliveryRequest]) (*connect.Response[RecordDeliveryResponse], error) {
	return c.recordDelivery.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetCustomerHistory(ctx context.Context, req *connect.Request[GetCustomerHistoryRequest]) (*connect.Response[GetCustomerHistoryResponse], error) {
	return c.getCustomerHistory.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListDeliveries(ctx context.Context, req *connect.Request[ListDeliveriesRequest]) (*connect.Response[ListDeliveriesResponse], error) {
	return c.listDeliveries.CallUnary(ctx, req)
}
