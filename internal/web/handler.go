// Package web serves the server-rendered customer and delivery pages.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/metrics"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{"customers.html", "customer-detail.html", "delivery-summary.html", "error.html"}

// pageData is the view model shared by every template
type pageData struct {
	Title      string
	Error      string
	Customers  []*model.Customer
	Customer   *model.Customer
	Deliveries []*model.Delivery
	Date       time.Time
	Entries    []ledger.SummaryEntry
}

// customerForm is the registration form posted to /add
type customerForm struct {
	ID      int64  `validate:"required,gt=0"`
	Name    string `validate:"required"`
	Phone   string `validate:"required"`
	Coupons int    `validate:"gte=0,lte=10"`
}

// Handler renders the HTML pages
type Handler struct {
	ledger    *ledger.Service
	log       *zap.Logger
	templates map[string]*template.Template
	validate  *validator.Validate
}

// NewHandler parses the embedded templates
func NewHandler(svc *ledger.Service, log *zap.Logger) (*Handler, error) {
	funcs := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &Handler{
		ledger:    svc,
		log:       log.Named("web"),
		templates: templates,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Routes returns a mux with every page route registered
func (h *Handler) Routes() http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.listCustomers)
	mux.HandleFunc("POST /add", h.addCustomer)
	mux.HandleFunc("GET /customer-details/{id}", h.customerDetails)
	mux.HandleFunc("POST /{id}/add-coupon", h.addCoupon)
	mux.HandleFunc("POST /{id}/deliver", h.deliver)
	mux.HandleFunc("GET /deliveries", h.deliveries)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.ledger.Customers.List(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}
	h.render(w, http.StatusOK, "customers.html", pageData{Title: "Customers", Customers: customers})
}

func (h *Handler) addCustomer(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseCustomerForm(r)
	if err != nil {
		h.renderError(w, err)
		return
	}

	customer, err := h.ledger.Customers.Register(r.Context(), form.ID, form.Name, form.Phone, form.Coupons)
	if err != nil {
		h.renderError(w, err)
		return
	}

	h.log.Info("Customer registered", zap.Int64("customer_id", customer.ID))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) parseCustomerForm(r *http.Request) (*customerForm, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}

	form := &customerForm{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Phone: strings.TrimSpace(r.PostFormValue("phone")),
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("id")), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: all fields are required", ledger.ErrInvalidInput)
	}
	form.ID = id

	if raw := strings.TrimSpace(r.PostFormValue("coupons")); raw != "" {
		coupons, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: coupons must be a number", ledger.ErrInvalidInput)
		}
		form.Coupons = coupons
	}

	if err := h.validate.Struct(form); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return form, nil
}

func (h *Handler) customerDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.renderError(w, err)
		return
	}

	details, err := h.ledger.Details(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	h.render(w, http.StatusOK, "customer-detail.html", pageData{
		Title:      details.Customer.Name,
		Customer:   details.Customer,
		Deliveries: details.Deliveries,
	})
}

func (h *Handler) addCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.renderError(w, err)
		return
	}

	balance, granted, err := h.ledger.Customers.Grant(r.Context(), id, ledger.DefaultGrant)
	if err != nil {
		h.renderError(w, err)
		return
	}

	metrics.CouponsGranted.Add(float64(granted))
	h.log.Info("Coupons granted", zap.Int64("customer_id", id), zap.Int("coupons", balance))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.renderError(w, err)
		return
	}

	delivery, err := h.ledger.RecordDelivery(r.Context(), id, time.Time{}, ledger.DefaultBottles)
	if err != nil {
		h.renderError(w, err)
		return
	}

	metrics.CouponsConsumed.Add(ledger.DefaultConsume)
	metrics.DeliveriesRecorded.Inc()
	h.log.Info("Delivery recorded",
		zap.Int64("customer_id", id),
		zap.String("date", model.FormatDay(delivery.Date)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) deliveries(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		h.renderError(w, fmt.Errorf("%w: please provide a date", ledger.ErrInvalidInput))
		return
	}
	day, err := model.ParseDay(raw)
	if err != nil {
		h.renderError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}

	entries, err := h.ledger.Summarize(r.Context(), day)
	if err != nil {
		h.renderError(w, err)
		return
	}

	h.render(w, http.StatusOK, "delivery-summary.html", pageData{
		Title:   "Deliveries " + model.FormatDay(day),
		Date:    day,
		Entries: entries,
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid customer id %q", ledger.ErrInvalidInput, r.PathValue("id"))
	}
	return id, nil
}

// render executes a page into a buffer first so template errors never
// produce a half-written response
func (h *Handler) render(w http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error("Failed to render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "Error rendering page.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	status, message := describe(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.Error(err))
	}
	h.render(w, status, "error.html", pageData{Title: "Error", Error: message})
}

// describe maps ledger errors to an HTTP status and a message for the page
func describe(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "Customer not found."
	case errors.Is(err, ledger.ErrDuplicateKey):
		return http.StatusConflict, "A customer with this ID already exists."
	case errors.Is(err, ledger.ErrLimitReached):
		return http.StatusConflict, "Max coupons reached."
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict, "No coupons available."
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage is unavailable, please try again."
	default:
		return http.StatusInternalServerError, "Unexpected error."
	}
}
