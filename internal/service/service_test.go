package service

import (
	"context"
	"errors"
	"testing"

	"tokobuku/backend/internal/docstore/memory"
	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/ledger"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	ldg := ledger.New(store, func(string, ...any) {})
	return New(store, ldg), store
}

func validOrderRequest() domain.OrderCreateRequest {
	return domain.OrderCreateRequest{
		Name:             "Budi",
		Last4DigitsPhone: "4821",
		DeliveryAddress:  "Jl. Melati 5, Bandung",
		DeliveryType:     "JNE",
		Items: []domain.OrderLineItem{
			{Description: "Atomic Habits", Price: 80000},
		},
	}
}

func TestCreateOrderRejectsMissingCustomer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := validOrderRequest()
	req.Name = "   "
	if _, err := svc.CreateOrder(ctx, req); !errors.Is(err, ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}

	req = validOrderRequest()
	req.Last4DigitsPhone = ""
	if _, err := svc.CreateOrder(ctx, req); !errors.Is(err, ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}

	orders, err := svc.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("rejected orders must not be persisted, found %d", len(orders))
	}
}

func TestCreateOrderRejectsBadLineItems(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := validOrderRequest()
	req.Items = []domain.OrderLineItem{{Description: "", Price: 80000}}
	if _, err := svc.CreateOrder(ctx, req); !errors.Is(err, ErrInvalidLineItem) {
		t.Fatalf("expected ErrInvalidLineItem for empty description, got %v", err)
	}

	req = validOrderRequest()
	req.Items = []domain.OrderLineItem{
		{Description: "Atomic Habits", Price: 80000},
		{Description: "Filosofi Teras", Price: 0},
	}
	if _, err := svc.CreateOrder(ctx, req); !errors.Is(err, ErrInvalidLineItem) {
		t.Fatalf("expected ErrInvalidLineItem for zero price, got %v", err)
	}
}

func TestCreateOrderAssignsUniqueCodeAndDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		order, err := svc.CreateOrder(ctx, validOrderRequest())
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if order.UniqueCode < 1 || order.UniqueCode > 100 {
			t.Fatalf("unique code %d outside [1,100]", order.UniqueCode)
		}
		if order.FinalTotal() != order.ItemsTotal()+order.UniqueCode {
			t.Fatalf("final total %d != items %d + code %d", order.FinalTotal(), order.ItemsTotal(), order.UniqueCode)
		}
		if order.Status != domain.OrderStatusPending {
			t.Fatalf("new order must start pending, got %s", order.Status)
		}
		if order.PaymentStatus != domain.PaymentStatusNone {
			t.Fatalf("payment must default to none, got %s", order.PaymentStatus)
		}
		if order.ID == "" {
			t.Fatalf("expected assigned order id")
		}
		for _, item := range order.Items {
			if item.ID == "" {
				t.Fatalf("expected assigned line item id")
			}
		}
	}
}

func TestCreateOrderDeductsStockPerOccurrence(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	stock, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{BookName: "Atomic Habits", Price: 50000, Stock: 5})
	if err != nil {
		t.Fatalf("create stock: %v", err)
	}

	req := validOrderRequest()
	req.Items = []domain.OrderLineItem{
		{Description: "Atomic Habits", Price: 80000, StockID: stock.ID},
		{Description: "Atomic Habits", Price: 80000, StockID: stock.ID},
		{Description: "Poster bonus", Price: 5000},
	}
	if _, err := svc.CreateOrder(ctx, req); err != nil {
		t.Fatalf("create order: %v", err)
	}

	items, err := svc.ListStockItems(ctx)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if len(items) != 1 || items[0].Stock != 3 {
		t.Fatalf("expected stock 3 after two deductions, got %+v", items)
	}
}

func TestCreateOrderSurvivesStockDeductionFailure(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// References a stock item that does not exist, so the batch increment
	// fails. The order must still be saved.
	req := validOrderRequest()
	req.Items = []domain.OrderLineItem{
		{Description: "Atomic Habits", Price: 80000, StockID: "missing-stock-id"},
	}
	order, err := svc.CreateOrder(ctx, req)
	if err != nil {
		t.Fatalf("create order must tolerate deduction failure, got %v", err)
	}

	got, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Name != "Budi" {
		t.Fatalf("unexpected persisted order: %+v", got)
	}
}

func TestUpdateOrderStatusIsUnconditional(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validOrderRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusSent)
	if err != nil {
		t.Fatalf("pending -> sent: %v", err)
	}
	if updated.Status != domain.OrderStatusSent {
		t.Fatalf("expected sent, got %s", updated.Status)
	}

	// Reopening a sent order is allowed; there is no transition guard.
	updated, err = svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("sent -> pending: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	if _, err := svc.UpdateOrderStatus(ctx, order.ID, "shipped"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateOrderPaymentValidatesEnum(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validOrderRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := svc.UpdateOrderPayment(ctx, order.ID, domain.PaymentStatusHalf)
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusHalf {
		t.Fatalf("expected half, got %s", updated.PaymentStatus)
	}

	if _, err := svc.UpdateOrderPayment(ctx, order.ID, "paid"); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got %v", err)
	}
}

func TestUpdateOrderItemsRevalidates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validOrderRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := svc.UpdateOrderItems(ctx, order.ID, []domain.OrderLineItem{{Description: "", Price: 100}}); !errors.Is(err, ErrInvalidLineItem) {
		t.Fatalf("expected ErrInvalidLineItem, got %v", err)
	}

	updated, err := svc.UpdateOrderItems(ctx, order.ID, []domain.OrderLineItem{
		{Description: "Filosofi Teras", Price: 90000},
		{Description: "Sebuah Seni Bersikap Bodo Amat", Price: 67000},
	})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(updated.Items))
	}
	if updated.ItemsTotal() != 157000 {
		t.Fatalf("expected items total 157000, got %d", updated.ItemsTotal())
	}
	for _, item := range updated.Items {
		if item.ID == "" {
			t.Fatalf("replacement items must get ids")
		}
	}
}

func TestSetOrderPaidFlags(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validOrderRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.BookPaid() {
		t.Fatalf("unpaid order must not report book paid")
	}

	updated, err := svc.SetOrderBookPaid(ctx, order.ID, true)
	if err != nil {
		t.Fatalf("set book paid: %v", err)
	}
	if !updated.BookPaid() {
		t.Fatalf("explicit flag must win")
	}

	updated, err = svc.SetOrderShippingPaid(ctx, order.ID, true)
	if err != nil {
		t.Fatalf("set shipping paid: %v", err)
	}
	if !updated.ShippingPaid() {
		t.Fatalf("explicit shipping flag must win")
	}
}

func TestDeleteOrderDoesNotRestoreStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	stock, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{BookName: "Atomic Habits", Price: 50000, Stock: 5})
	if err != nil {
		t.Fatalf("create stock: %v", err)
	}

	req := validOrderRequest()
	req.Items = []domain.OrderLineItem{{Description: "Atomic Habits", Price: 80000, StockID: stock.ID}}
	order, err := svc.CreateOrder(ctx, req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := svc.DeleteOrder(ctx, order.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := svc.GetOrder(ctx, order.ID); err == nil {
		t.Fatalf("expected deleted order to be gone")
	}

	items, err := svc.ListStockItems(ctx)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if items[0].Stock != 4 {
		t.Fatalf("deleting an order must not put stock back, got %d", items[0].Stock)
	}
}

func TestStockItemValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{BookName: "", Price: 50000, Stock: 1}); !errors.Is(err, ErrInvalidStock) {
		t.Fatalf("expected ErrInvalidStock for empty name, got %v", err)
	}
	if _, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{BookName: "X", Price: 0, Stock: 1}); !errors.Is(err, ErrInvalidStock) {
		t.Fatalf("expected ErrInvalidStock for zero price, got %v", err)
	}

	stock, err := svc.CreateStockItem(ctx, domain.StockItemCreateRequest{BookName: "Atomic Habits", Price: 50000, Stock: 5})
	if err != nil {
		t.Fatalf("create stock: %v", err)
	}

	bad := int64(-1)
	if _, err := svc.UpdateStockItem(ctx, stock.ID, domain.StockItemUpdateRequest{Stock: &bad}); !errors.Is(err, ErrInvalidStock) {
		t.Fatalf("expected ErrInvalidStock for negative stock, got %v", err)
	}

	price := int64(55000)
	updated, err := svc.UpdateStockItem(ctx, stock.ID, domain.StockItemUpdateRequest{Price: &price})
	if err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if updated.Price != 55000 || updated.BookName != "Atomic Habits" {
		t.Fatalf("partial update must keep untouched fields, got %+v", updated)
	}
}

func TestCreateExpenseFixesTotalAtWrite(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	exp, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Name: "Bubble wrap", Price: 2000, Qty: 3})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if exp.Total != 6000 {
		t.Fatalf("expected total 6000, got %d", exp.Total)
	}

	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Name: "Lakban", Price: 5000, Qty: 0}); !errors.Is(err, ErrInvalidExpense) {
		t.Fatalf("expected ErrInvalidExpense, got %v", err)
	}
}

func TestCreateHistoryEntryFixesProfitAtWrite(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	entry, err := svc.CreateHistoryEntry(ctx, domain.HistoryCreateRequest{
		Description: "Maret 2024",
		Capital:     300000,
		Revenue:     500000,
		TotalBooks:  12,
	})
	if err != nil {
		t.Fatalf("create history: %v", err)
	}
	if entry.Profit != 200000 {
		t.Fatalf("expected profit 200000, got %d", entry.Profit)
	}

	if _, err := svc.CreateHistoryEntry(ctx, domain.HistoryCreateRequest{Description: " "}); !errors.Is(err, ErrInvalidHistory) {
		t.Fatalf("expected ErrInvalidHistory, got %v", err)
	}
}
