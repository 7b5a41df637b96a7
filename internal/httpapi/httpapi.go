package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tokobuku/backend/internal/docstore"
	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/filter"
	"tokobuku/backend/internal/report"
	"tokobuku/backend/internal/service"
)

type API struct {
	service       *service.Service
	reports       *report.Aggregator
	allowedOrigin string
}

func New(svc *service.Service, reports *report.Aggregator, allowedOrigin string) *API {
	return &API{
		service:       svc,
		reports:       reports,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", a.handleListOrders)
			r.Post("/", a.handleCreateOrder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetOrder)
				r.Delete("/", a.handleDeleteOrder)
				r.Patch("/status", a.handleUpdateOrderStatus)
				r.Patch("/payment", a.handleUpdateOrderPayment)
				r.Patch("/address", a.handleUpdateOrderAddress)
				r.Patch("/delivery-type", a.handleUpdateOrderDeliveryType)
				r.Patch("/items", a.handleUpdateOrderItems)
				r.Patch("/book-paid", a.handleSetOrderBookPaid)
				r.Patch("/shipping-paid", a.handleSetOrderShippingPaid)
			})
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", a.handleListStock)
			r.Post("/", a.handleCreateStock)
			r.Patch("/{id}", a.handleUpdateStock)
			r.Delete("/{id}", a.handleDeleteStock)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", a.handleListExpenses)
			r.Post("/", a.handleCreateExpense)
			r.Delete("/{id}", a.handleDeleteExpense)
		})

		r.Route("/sales-history", func(r chi.Router) {
			r.Get("/", a.handleListHistory)
			r.Post("/", a.handleCreateHistory)
			r.Delete("/{id}", a.handleDeleteHistory)
		})

		r.Get("/reports/profit", a.handleProfitReport)
	})

	return a.withMiddleware(r)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// ---- orders ----

// handleListOrders returns orders newest first. Status, payment, date range
// and search filters are applied in memory on top of the stored list, the
// same way the order screens narrow what they show.
func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.service.ListOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	spec, err := filterSpecFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orders = filter.Apply(orders, spec)

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := a.service.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status))
}

func (a *API) handleUpdateOrderPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.UpdateOrderPayment(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus))
}

func (a *API) handleUpdateOrderAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeliveryAddress string `json:"delivery_address"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.UpdateOrderAddress(r.Context(), chi.URLParam(r, "id"), req.DeliveryAddress))
}

func (a *API) handleUpdateOrderDeliveryType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeliveryType string `json:"delivery_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.UpdateOrderDeliveryType(r.Context(), chi.URLParam(r, "id"), req.DeliveryType))
}

func (a *API) handleUpdateOrderItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []domain.OrderLineItem `json:"orders"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.UpdateOrderItems(r.Context(), chi.URLParam(r, "id"), req.Items))
}

func (a *API) handleSetOrderBookPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paid bool `json:"paid"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.SetOrderBookPaid(r.Context(), chi.URLParam(r, "id"), req.Paid))
}

func (a *API) handleSetOrderShippingPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paid bool `json:"paid"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeOrderResult(w)(a.service.SetOrderShippingPaid(r.Context(), chi.URLParam(r, "id"), req.Paid))
}

func (a *API) writeOrderResult(w http.ResponseWriter) func(domain.Order, error) {
	return func(order domain.Order, err error) {
		if err != nil {
			writeError(w, statusForServiceError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": order})
	}
}

// ---- stock opname ----

func (a *API) handleListStock(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListStockItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": items})
}

func (a *API) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockItemCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.CreateStockItem(r.Context(), req)
	if err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stock_item": item})
}

func (a *API) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockItemUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.UpdateStockItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_item": item})
}

func (a *API) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteStockItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- expenses ----

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := a.service.ListExpenses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	exp, err := a.service.CreateExpense(r.Context(), req)
	if err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": exp})
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- sales history ----

func (a *API) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := a.service.ListHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (a *API) handleCreateHistory(w http.ResponseWriter, r *http.Request) {
	var req domain.HistoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := a.service.CreateHistoryEntry(r.Context(), req)
	if err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"history_entry": entry})
}

func (a *API) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteHistoryEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusForServiceError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- reports ----

func (a *API) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.reports.ProfitReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ---- plumbing ----

func filterSpecFromQuery(r *http.Request) (filter.Spec, error) {
	q := r.URL.Query()
	spec := filter.Spec{
		Status:  strings.TrimSpace(q.Get("status")),
		Payment: strings.TrimSpace(q.Get("payment")),
		Search:  strings.TrimSpace(q.Get("q")),
	}

	parseDay := func(key string) (*time.Time, error) {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errors.New(key + " must be formatted as YYYY-MM-DD")
		}
		return &t, nil
	}

	var err error
	if spec.From, err = parseDay("from"); err != nil {
		return filter.Spec{}, err
	}
	if spec.To, err = parseDay("to"); err != nil {
		return filter.Spec{}, err
	}
	return spec, nil
}

func statusForServiceError(err error) int {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMissingCustomer),
		errors.Is(err, service.ErrInvalidLineItem),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPayment),
		errors.Is(err, service.ErrInvalidStock),
		errors.Is(err, service.ErrInvalidExpense),
		errors.Is(err, service.ErrInvalidHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses return a generic message so internal details never
	// reach the client. 4xx messages are user-facing.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
