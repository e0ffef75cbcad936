package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"

	"github.com/kkkkikiki/coupon-ledger/internal/api/ledgerv1"
)

// PerfResult gathers aggregated metrics for the test run.
// Counters are updated atomically by the workers.
type PerfResult struct {
	TotalRequests  int64
	SuccessCount   int64
	RejectedCount  int64
	ErrorCount     int64
	LatencySum     int64
	latencyMu      sync.Mutex
	latencySamples []time.Duration
}

const defaultTimeout = 30 * time.Second

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "ledger service base URL")
	requests := flag.Int("requests", 200, "number of delivery requests to send")
	coupons := flag.Int("coupons", 10, "initial coupon balance of the test customer (0-10)")
	workers := flag.Int("workers", 50, "number of concurrent workers")
	rps := flag.Int("rps", 500, "request rate limit")
	flag.Parse()

	transport := &http.Transport{
		MaxIdleConns:        *workers * 4,
		MaxIdleConnsPerHost: *workers * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout,
	}
	client := ledgerv1.NewLedgerServiceClient(httpClient, *baseURL)

	// ─── Test customer ───────────────────────────────────────────
	customerID := time.Now().UnixNano() / int64(time.Millisecond)
	if err := createCustomer(client, customerID, *coupons); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create customer: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created customer %d with %d coupons\n", customerID, *coupons)

	fmt.Println("==========================================")
	fmt.Println("Concurrent delivery load test")
	fmt.Println("==========================================")
	fmt.Printf("Customer ID : %d\n", customerID)
	fmt.Printf("Requests    : %d\n", *requests)
	fmt.Printf("Workers     : %d\n", *workers)
	fmt.Printf("RPS limit   : %d\n", *rps)
	fmt.Println("==========================================")

	// ─── Rate limiter & workers ─────────────────────────────────
	burst := *rps / *workers
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(*rps), burst)

	var result PerfResult
	var remaining atomic.Int64
	remaining.Store(int64(*requests))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for remaining.Add(-1) >= 0 {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				doRequest(client, customerID, &result)
			}
		}()
	}
	wg.Wait()
	totalDur := time.Since(start)

	// ─── Report ─────────────────────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("Results")
	fmt.Println("==========================================")
	fmt.Printf("Duration          : %.2fs\n", totalDur.Seconds())
	fmt.Printf("Total requests    : %d\n", result.TotalRequests)
	fmt.Printf("Delivered         : %d\n", result.SuccessCount)
	fmt.Printf("Rejected (no bal.): %d\n", result.RejectedCount)
	fmt.Printf("Errors            : %d\n", result.ErrorCount)
	fmt.Printf("Throughput        : %.2f req/s\n", float64(result.TotalRequests)/totalDur.Seconds())
	if result.TotalRequests > 0 {
		fmt.Printf("Avg latency       : %v\n", time.Duration(result.LatencySum/result.TotalRequests))
	}
	fmt.Printf("P95 latency       : %v\n", result.p95())

	// ─── Data consistency check ─────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("Consistency check")
	fmt.Println("==========================================")
	if err := verifyDataConsistency(client, customerID, int64(*coupons), &result); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK: balance and delivery log agree")
}

// createCustomer registers the customer the load is run against
func createCustomer(client *ledgerv1.LedgerServiceClient, id int64, coupons int) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := client.CreateCustomer(ctx, connect.NewRequest(&ledgerv1.CreateCustomerRequest{
		Id:      id,
		Name:    fmt.Sprintf("perf-%d", id),
		Phone:   "000-0000",
		Coupons: coupons,
	}))
	if err != nil {
		return fmt.Errorf("create customer failed: %w", err)
	}
	return nil
}

// doRequest performs a single RecordDelivery RPC and collects metrics
func doRequest(client *ledgerv1.LedgerServiceClient, customerID int64, result *PerfResult) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	req := connect.NewRequest(&ledgerv1.RecordDeliveryRequest{CustomerId: customerID})

	start := time.Now()
	_, err := client.RecordDelivery(ctx, req)
	latency := time.Since(start)

	atomic.AddInt64(&result.TotalRequests, 1)
	atomic.AddInt64(&result.LatencySum, latency.Nanoseconds())
	result.latencyMu.Lock()
	result.latencySamples = append(result.latencySamples, latency)
	result.latencyMu.Unlock()

	switch {
	case err == nil:
		atomic.AddInt64(&result.SuccessCount, 1)
	case connect.CodeOf(err) == connect.CodeResourceExhausted:
		atomic.AddInt64(&result.RejectedCount, 1)
	default:
		atomic.AddInt64(&result.ErrorCount, 1)
	}
}

func (r *PerfResult) p95() time.Duration {
	r.latencyMu.Lock()
	defer r.latencyMu.Unlock()

	if len(r.latencySamples) == 0 {
		return 0
	}
	samples := append([]time.Duration(nil), r.latencySamples...)
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	idx := int(float64(len(samples)) * 0.95)
	if idx >= len(samples) {
		idx = len(samples) - 1
	}
	return samples[idx]
}

// verifyDataConsistency checks the server state against what the load test observed
func verifyDataConsistency(client *ledgerv1.LedgerServiceClient, customerID, initialCoupons int64, result *PerfResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.GetCustomerHistory(ctx, connect.NewRequest(&ledgerv1.GetCustomerHistoryRequest{
		CustomerId: customerID,
	}))
	if err != nil {
		return fmt.Errorf("failed to get customer history: %w", err)
	}

	balance := int64(resp.Msg.Customer.Coupons)
	recorded := int64(len(resp.Msg.Deliveries))

	fmt.Printf("Initial coupons      : %d\n", initialCoupons)
	fmt.Printf("Remaining coupons    : %d\n", balance)
	fmt.Printf("Deliveries (server)  : %d\n", recorded)
	fmt.Printf("Deliveries (client)  : %d\n", result.SuccessCount)

	var errs []error
	if recorded != result.SuccessCount {
		errs = append(errs, fmt.Errorf("delivery log holds %d records, client saw %d successes", recorded, result.SuccessCount))
	}
	if balance+recorded != initialCoupons {
		errs = append(errs, fmt.Errorf("balance %d + deliveries %d != initial %d", balance, recorded, initialCoupons))
	}
	if balance < 0 {
		errs = append(errs, fmt.Errorf("negative balance: %d", balance))
	}
	if result.ErrorCount == 0 && result.TotalRequests >= initialCoupons && result.SuccessCount != initialCoupons {
		errs = append(errs, fmt.Errorf("expected exactly %d deliveries, got %d", initialCoupons, result.SuccessCount))
	}
	return errors.Join(errs...)
}
