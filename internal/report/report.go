// Package report derives the profit view by joining orders, stock opname and
// expenses. The three collections are read independently, so the report is a
// point-in-time snapshot with no cross-collection isolation; repeated calls
// over stable inputs are idempotent.
package report

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"tokobuku/backend/internal/cache"
	"tokobuku/backend/internal/docstore"
	"tokobuku/backend/internal/domain"
)

const profitCacheKey = "reports:profit"

type Aggregator struct {
	store docstore.Client
	cache cache.ReportCache
	ttl   time.Duration
}

func New(store docstore.Client, reportCache cache.ReportCache, ttl time.Duration) *Aggregator {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Aggregator{store: store, cache: reportCache, ttl: ttl}
}

// ProfitReport builds the full profit view. Only orders with status "sent"
// contribute; every line item of a surviving order becomes one ProfitLine with
// its buy price resolved by stock id first, then by case-insensitive book
// name, else zero (unknown cost counts as pure profit by policy).
func (a *Aggregator) ProfitReport(ctx context.Context) (*domain.ProfitReport, error) {
	if cached, ok, err := a.cache.Get(ctx, profitCacheKey); err == nil && ok {
		return cached, nil
	}

	orders, err := a.listOrders(ctx)
	if err != nil {
		return nil, err
	}
	stocks, err := a.listStockItems(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := a.listExpenses(ctx)
	if err != nil {
		return nil, err
	}

	report := Build(orders, stocks, expenses)
	report.GeneratedAt = time.Now().UTC()

	_ = a.cache.Set(ctx, profitCacheKey, report, a.ttl)
	return report, nil
}

// Build is the pure aggregation core, separated from I/O so it can be
// exercised directly.
func Build(orders []domain.Order, stocks []domain.StockItem, expenses []domain.Expense) *domain.ProfitReport {
	priceByID := make(map[string]int64, len(stocks))
	priceByName := make(map[string]int64, len(stocks))
	for _, stock := range stocks {
		priceByID[stock.ID] = stock.Price
		priceByName[strings.ToLower(stock.BookName)] = stock.Price
	}

	lines := make([]domain.ProfitLine, 0, len(orders))
	summary := domain.ProfitSummary{}

	for _, order := range orders {
		if order.Status != domain.OrderStatusSent {
			continue
		}
		for idx, item := range order.Items {
			buyPrice := resolveBuyPrice(item, priceByID, priceByName)
			profit := item.Price - buyPrice

			summary.TotalRevenue += item.Price
			summary.TotalCost += buyPrice
			summary.TotalProfit += profit
			summary.TotalUnitsShipped++

			lines = append(lines, domain.ProfitLine{
				ID:           fmt.Sprintf("%s-%d", order.ID, idx),
				OrderID:      order.ID,
				CustomerName: order.Name,
				ItemName:     item.Description,
				SellPrice:    item.Price,
				BuyPrice:     buyPrice,
				Profit:       profit,
				Date:         order.CreatedAt,
			})
		}
	}

	// Newest parent order first; the stable sort keeps encounter order for ties.
	slices.SortStableFunc(lines, func(a, b domain.ProfitLine) int {
		if a.Date.After(b.Date) {
			return -1
		}
		if a.Date.Before(b.Date) {
			return 1
		}
		return 0
	})

	for _, expense := range expenses {
		summary.TotalExpenses += expense.Total
	}
	summary.NetProfit = summary.TotalProfit - summary.TotalExpenses
	summary.Zakat = ZakatDue(summary.NetProfit)

	return &domain.ProfitReport{Lines: lines, Summary: summary}
}

// ZakatDue is 2.5% of a positive net profit, zero otherwise.
func ZakatDue(netProfit int64) int64 {
	if netProfit <= 0 {
		return 0
	}
	return netProfit / 40
}

func resolveBuyPrice(item domain.OrderLineItem, priceByID map[string]int64, priceByName map[string]int64) int64 {
	if item.StockID != "" {
		if price, ok := priceByID[item.StockID]; ok {
			return price
		}
	}
	if item.Description != "" {
		if price, ok := priceByName[strings.ToLower(item.Description)]; ok {
			return price
		}
	}
	return 0
}

func (a *Aggregator) listOrders(ctx context.Context) ([]domain.Order, error) {
	records, err := a.store.ListCollection(ctx, domain.CollectionOrders, "", false)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]domain.Order, 0, len(records))
	for _, record := range records {
		var order domain.Order
		if err := record.Decode(&order); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", record.ID, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (a *Aggregator) listStockItems(ctx context.Context) ([]domain.StockItem, error) {
	records, err := a.store.ListCollection(ctx, domain.CollectionStockOpname, "", false)
	if err != nil {
		return nil, fmt.Errorf("list stock opname: %w", err)
	}
	stocks := make([]domain.StockItem, 0, len(records))
	for _, record := range records {
		var stock domain.StockItem
		if err := record.Decode(&stock); err != nil {
			return nil, fmt.Errorf("decode stock item %s: %w", record.ID, err)
		}
		stocks = append(stocks, stock)
	}
	return stocks, nil
}

func (a *Aggregator) listExpenses(ctx context.Context) ([]domain.Expense, error) {
	records, err := a.store.ListCollection(ctx, domain.CollectionExpenses, "", false)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]domain.Expense, 0, len(records))
	for _, record := range records {
		var expense domain.Expense
		if err := record.Decode(&expense); err != nil {
			return nil, fmt.Errorf("decode expense %s: %w", record.ID, err)
		}
		expenses = append(expenses, expense)
	}
	return expenses, nil
}
