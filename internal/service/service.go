// Package service holds the business rules for orders, stock, expenses
// and sales history. Handlers stay thin; everything that validates or
// derives data lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"tokobuku/backend/internal/docstore"
	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/ledger"
)

var (
	ErrMissingCustomer = errors.New("service: customer name and phone are required")
	ErrInvalidLineItem = errors.New("service: line items need a description and a positive price")
	ErrInvalidStatus   = errors.New("service: unknown order status")
	ErrInvalidPayment  = errors.New("service: unknown payment status")
	ErrInvalidStock    = errors.New("service: stock item needs a name, a positive price and a non-negative stock count")
	ErrInvalidExpense  = errors.New("service: expense needs a name, a positive price and a positive quantity")
	ErrInvalidHistory  = errors.New("service: history entry needs a description and non-negative amounts")
)

type Service struct {
	store  docstore.Client
	ledger *ledger.Ledger
	now    func() time.Time
}

func New(store docstore.Client, ldg *ledger.Ledger) *Service {
	return &Service{
		store:  store,
		ledger: ldg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ---- orders ----

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Last4DigitsPhone)
	if name == "" || phone == "" {
		return domain.Order{}, ErrMissingCustomer
	}
	items, err := normalizeLineItems(req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	payment := req.PaymentStatus
	if payment == "" {
		payment = domain.PaymentStatusNone
	}
	if !domain.ValidPaymentStatus(payment) {
		return domain.Order{}, ErrInvalidPayment
	}

	now := s.now()
	order := domain.Order{
		Name:             name,
		Last4DigitsPhone: phone,
		DeliveryAddress:  strings.TrimSpace(req.DeliveryAddress),
		DeliveryType:     strings.TrimSpace(req.DeliveryType),
		AdditionalNotes:  strings.TrimSpace(req.AdditionalNotes),
		Items:            items,
		UniqueCode:       rand.Int63n(100) + 1,
		Status:           domain.OrderStatusPending,
		PaymentStatus:    payment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	data, err := docstore.Encode(order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode order: %w", err)
	}
	rec, err := s.store.Insert(ctx, domain.CollectionOrders, data)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	order.ID = rec.ID

	// The order is already saved; a stock shortfall must not undo it.
	// The ledger reports failures through its own observer.
	s.ledger.Deduct(ctx, order.Items)

	return order, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	recs, err := s.store.ListCollection(ctx, domain.CollectionOrders, "created_at", true)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		var o domain.Order
		if err := rec.Decode(&o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", rec.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	rec, err := s.store.GetOne(ctx, domain.CollectionOrders, id)
	if err != nil {
		return domain.Order{}, err
	}
	var o domain.Order
	if err := rec.Decode(&o); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return o, nil
}

// UpdateOrderStatus moves an order to any valid status. Transitions are
// unconditional: a sent order may be pulled back to pending.
func (s *Service) UpdateOrderStatus(ctx context.Context, id, status string) (domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return domain.Order{}, ErrInvalidStatus
	}
	return s.patchOrder(ctx, id, map[string]any{"status": status})
}

func (s *Service) UpdateOrderPayment(ctx context.Context, id, payment string) (domain.Order, error) {
	if !domain.ValidPaymentStatus(payment) {
		return domain.Order{}, ErrInvalidPayment
	}
	return s.patchOrder(ctx, id, map[string]any{"payment_status": payment})
}

func (s *Service) UpdateOrderAddress(ctx context.Context, id, address string) (domain.Order, error) {
	return s.patchOrder(ctx, id, map[string]any{"delivery_address": strings.TrimSpace(address)})
}

func (s *Service) UpdateOrderDeliveryType(ctx context.Context, id, deliveryType string) (domain.Order, error) {
	return s.patchOrder(ctx, id, map[string]any{"delivery_type": strings.TrimSpace(deliveryType)})
}

func (s *Service) UpdateOrderItems(ctx context.Context, id string, items []domain.OrderLineItem) (domain.Order, error) {
	normalized, err := normalizeLineItems(items)
	if err != nil {
		return domain.Order{}, err
	}
	return s.patchOrder(ctx, id, map[string]any{"orders": normalized})
}

func (s *Service) SetOrderBookPaid(ctx context.Context, id string, paid bool) (domain.Order, error) {
	return s.patchOrder(ctx, id, map[string]any{"is_book_paid": paid})
}

func (s *Service) SetOrderShippingPaid(ctx context.Context, id string, paid bool) (domain.Order, error) {
	return s.patchOrder(ctx, id, map[string]any{"is_shipping_paid": paid})
}

// DeleteOrder removes the order document. Stock deducted when the order
// was created is not put back; deleting a shipped order would otherwise
// inflate inventory that already left the shelf.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.store.Remove(ctx, domain.CollectionOrders, id)
}

func (s *Service) patchOrder(ctx context.Context, id string, partial map[string]any) (domain.Order, error) {
	if err := s.store.Update(ctx, domain.CollectionOrders, id, partial); err != nil {
		return domain.Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func normalizeLineItems(items []domain.OrderLineItem) ([]domain.OrderLineItem, error) {
	out := make([]domain.OrderLineItem, 0, len(items))
	for _, it := range items {
		it.Description = strings.TrimSpace(it.Description)
		if it.Description == "" || it.Price <= 0 {
			return nil, ErrInvalidLineItem
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		out = append(out, it)
	}
	return out, nil
}

// ---- stock opname ----

func (s *Service) CreateStockItem(ctx context.Context, req domain.StockItemCreateRequest) (domain.StockItem, error) {
	name := strings.TrimSpace(req.BookName)
	if name == "" || req.Price <= 0 || req.Stock < 0 {
		return domain.StockItem{}, ErrInvalidStock
	}
	item := domain.StockItem{
		BookName:  name,
		Price:     req.Price,
		Stock:     req.Stock,
		CreatedAt: s.now(),
	}
	data, err := docstore.Encode(item)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("encode stock item: %w", err)
	}
	rec, err := s.store.Insert(ctx, domain.CollectionStockOpname, data)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("insert stock item: %w", err)
	}
	item.ID = rec.ID
	return item, nil
}

func (s *Service) ListStockItems(ctx context.Context) ([]domain.StockItem, error) {
	recs, err := s.store.ListCollection(ctx, domain.CollectionStockOpname, "created_at", true)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	items := make([]domain.StockItem, 0, len(recs))
	for _, rec := range recs {
		var it domain.StockItem
		if err := rec.Decode(&it); err != nil {
			return nil, fmt.Errorf("decode stock item %s: %w", rec.ID, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *Service) UpdateStockItem(ctx context.Context, id string, req domain.StockItemUpdateRequest) (domain.StockItem, error) {
	partial := map[string]any{}
	if req.BookName != nil {
		name := strings.TrimSpace(*req.BookName)
		if name == "" {
			return domain.StockItem{}, ErrInvalidStock
		}
		partial["book_name"] = name
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return domain.StockItem{}, ErrInvalidStock
		}
		partial["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.StockItem{}, ErrInvalidStock
		}
		partial["stock"] = *req.Stock
	}
	if err := s.store.Update(ctx, domain.CollectionStockOpname, id, partial); err != nil {
		return domain.StockItem{}, err
	}
	rec, err := s.store.GetOne(ctx, domain.CollectionStockOpname, id)
	if err != nil {
		return domain.StockItem{}, err
	}
	var it domain.StockItem
	if err := rec.Decode(&it); err != nil {
		return domain.StockItem{}, fmt.Errorf("decode stock item %s: %w", id, err)
	}
	return it, nil
}

func (s *Service) DeleteStockItem(ctx context.Context, id string) error {
	return s.store.Remove(ctx, domain.CollectionStockOpname, id)
}

// ---- expenses ----

// CreateExpense totals the expense at write time so readers never
// recompute price times quantity.
func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price <= 0 || req.Qty <= 0 {
		return domain.Expense{}, ErrInvalidExpense
	}
	exp := domain.Expense{
		Name:      name,
		Price:     req.Price,
		Qty:       req.Qty,
		Total:     req.Price * req.Qty,
		CreatedAt: s.now(),
	}
	data, err := docstore.Encode(exp)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("encode expense: %w", err)
	}
	rec, err := s.store.Insert(ctx, domain.CollectionExpenses, data)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	exp.ID = rec.ID
	return exp, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	recs, err := s.store.ListCollection(ctx, domain.CollectionExpenses, "created_at", true)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]domain.Expense, 0, len(recs))
	for _, rec := range recs {
		var e domain.Expense
		if err := rec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode expense %s: %w", rec.ID, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	return s.store.Remove(ctx, domain.CollectionExpenses, id)
}

// ---- sales history ----

// CreateHistoryEntry stores a closed period. Profit is fixed at write
// time; later stock price edits must not rewrite past periods.
func (s *Service) CreateHistoryEntry(ctx context.Context, req domain.HistoryCreateRequest) (domain.HistoryEntry, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" || req.Revenue < 0 || req.Capital < 0 || req.TotalBooks < 0 {
		return domain.HistoryEntry{}, ErrInvalidHistory
	}
	entry := domain.HistoryEntry{
		Description: desc,
		Capital:     req.Capital,
		Revenue:     req.Revenue,
		Profit:      req.Revenue - req.Capital,
		TotalBooks:  req.TotalBooks,
		CreatedAt:   s.now(),
	}
	data, err := docstore.Encode(entry)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("encode history entry: %w", err)
	}
	rec, err := s.store.Insert(ctx, domain.CollectionSalesHistory, data)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("insert history entry: %w", err)
	}
	entry.ID = rec.ID
	return entry, nil
}

func (s *Service) ListHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	recs, err := s.store.ListCollection(ctx, domain.CollectionSalesHistory, "created_at", true)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		var e domain.HistoryEntry
		if err := rec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", rec.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Service) DeleteHistoryEntry(ctx context.Context, id string) error {
	return s.store.Remove(ctx, domain.CollectionSalesHistory, id)
}
