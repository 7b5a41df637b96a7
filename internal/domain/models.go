package domain

import "time"

// Collection names in the backing document store.
const (
	CollectionOrders       = "orders"
	CollectionStockOpname  = "stock_opname"
	CollectionExpenses     = "expenses"
	CollectionSalesHistory = "sales_history"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPacking = "packing"
	OrderStatusSent    = "sent"
	OrderStatusHnR     = "hnr"
)

const (
	PaymentStatusNone = "none"
	PaymentStatusHalf = "half"
	PaymentStatusFull = "full"
)

// DeliveryTypeShopee marks orders handled through the Shopee marketplace.
// Shipping for those orders is settled by the platform, so the shipping-paid
// flag and the delivery address are irrelevant for them.
const DeliveryTypeShopee = "Shopee"

// StockItem is one stock-opname record: a catalog book, its buy price and the
// quantity on hand. Stock is advisory; concurrent order deductions may drive
// it negative.
type StockItem struct {
	ID        string    `json:"id"`
	BookName  string    `json:"book_name"`
	Price     int64     `json:"price"`
	Stock     int64     `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderLineItem is a single purchased item inside an order. StockID is a weak
// reference to a StockItem used only for cost lookup; quantity is expressed by
// repeating the line.
type OrderLineItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	StockID     string `json:"stock_id,omitempty"`
}

type Order struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Last4DigitsPhone string          `json:"last_4_digits_phone"`
	DeliveryAddress  string          `json:"delivery_address,omitempty"`
	DeliveryType     string          `json:"delivery_type"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	IsBookPaid       *bool           `json:"is_book_paid,omitempty"`
	IsShippingPaid   *bool           `json:"is_shipping_paid,omitempty"`
	Items            []OrderLineItem `json:"orders"`
	UniqueCode       int64           `json:"unique_code"`
	AdditionalNotes  string          `json:"additional_notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ItemsTotal sums the sell price of every line item.
func (o Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Price
	}
	return total
}

// FinalTotal is the payable amount: the item total plus the random unique code
// used to disambiguate bank transfers.
func (o Order) FinalTotal() int64 {
	return o.ItemsTotal() + o.UniqueCode
}

// BookPaid reports whether the book portion is settled. An explicit flag wins;
// otherwise it derives from payment status (half counts as book paid).
func (o Order) BookPaid() bool {
	if o.IsBookPaid != nil {
		return *o.IsBookPaid
	}
	return o.PaymentStatus == PaymentStatusFull || o.PaymentStatus == PaymentStatusHalf
}

// ShippingPaid reports whether shipping is settled: explicit flag first, else
// derived from a full payment. Shopee orders are always considered settled.
func (o Order) ShippingPaid() bool {
	if o.IsShopee() {
		return true
	}
	if o.IsShippingPaid != nil {
		return *o.IsShippingPaid
	}
	return o.PaymentStatus == PaymentStatusFull
}

func (o Order) IsShopee() bool {
	return o.DeliveryType == DeliveryTypeShopee
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPacking, OrderStatusSent, OrderStatusHnR:
		return true
	}
	return false
}

func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusNone, PaymentStatusHalf, PaymentStatusFull:
		return true
	}
	return false
}

// Expense is an operating cost entry. Total is fixed at write time as
// price x qty and never re-derived.
type Expense struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Qty       int64     `json:"qty"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is a manual sales rollup kept outside the derived profit
// report. Profit is fixed at write time as revenue - capital.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Capital     int64     `json:"capital"`
	Revenue     int64     `json:"revenue"`
	Profit      int64     `json:"profit"`
	TotalBooks  int64     `json:"total_books"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfitLine is one order/line-item pair of a sent order, with the buy price
// resolved against stock opname data. Derived, never persisted.
type ProfitLine struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	ItemName     string    `json:"item_name"`
	SellPrice    int64     `json:"sell_price"`
	BuyPrice     int64     `json:"buy_price"`
	Profit       int64     `json:"profit"`
	Date         time.Time `json:"date"`
}

type ProfitSummary struct {
	TotalRevenue      int64 `json:"total_revenue"`
	TotalCost         int64 `json:"total_cost"`
	TotalProfit       int64 `json:"total_profit"`
	TotalExpenses     int64 `json:"total_expenses"`
	NetProfit         int64 `json:"net_profit"`
	Zakat             int64 `json:"zakat"`
	TotalUnitsShipped int64 `json:"total_units_shipped"`
}

type ProfitReport struct {
	Lines       []ProfitLine  `json:"lines"`
	Summary     ProfitSummary `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type OrderCreateRequest struct {
	Name             string          `json:"name"`
	Last4DigitsPhone string          `json:"last_4_digits_phone"`
	DeliveryAddress  string          `json:"delivery_address"`
	DeliveryType     string          `json:"delivery_type"`
	PaymentStatus    string          `json:"payment_status"`
	AdditionalNotes  string          `json:"additional_notes"`
	Items            []OrderLineItem `json:"orders"`
}

type StockItemCreateRequest struct {
	BookName string `json:"book_name"`
	Price    int64  `json:"price"`
	Stock    int64  `json:"stock"`
}

type StockItemUpdateRequest struct {
	BookName *string `json:"book_name,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	Stock    *int64  `json:"stock,omitempty"`
}

type ExpenseCreateRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
}

type HistoryCreateRequest struct {
	Description string `json:"description"`
	Capital     int64  `json:"capital"`
	Revenue     int64  `json:"revenue"`
	TotalBooks  int64  `json:"total_books"`
}
