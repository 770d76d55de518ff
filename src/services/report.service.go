package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"clinic-ops/src/apperror"
	"clinic-ops/src/models"
	"clinic-ops/src/repositories"
)

type CategorySummary struct {
	Category models.Category `json:"category"`
	Items    int             `json:"items"`
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

type InventoryReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Items       []models.InventoryItem `json:"items"`
	TotalItems  int                    `json:"total_items"`
	TotalValue  decimal.Decimal        `json:"total_value"`
	Categories  []CategorySummary      `json:"categories"`
}

type TransactionReport struct {
	Start        time.Time                       `json:"start_date"`
	End          time.Time                       `json:"end_date"`
	Transactions []models.Transaction            `json:"transactions"`
	Summary      *repositories.TransactionStats `json:"summary"`
}

type LowStockReport struct {
	Items []models.InventoryItem `json:"items"`
	Count int                    `json:"count"`
}

type ExpiryReport struct {
	Days          int                    `json:"days"`
	Expiring      []models.InventoryItem `json:"expiring"`
	Expired       []models.InventoryItem `json:"expired"`
	ExpiringCount int                    `json:"expiring_count"`
	ExpiredCount  int                    `json:"expired_count"`
}

type Dashboard struct {
	Inventory          *repositories.InventoryStats   `json:"inventory"`
	Today              *repositories.TransactionStats `json:"today"`
	Alerts             *repositories.AlertStats       `json:"alerts"`
	RecentTransactions []models.Transaction           `json:"recent_transactions"`
}

// ReportService is read-only.
type ReportService struct {
	Inventory    *repositories.InventoryRepository
	Transactions *repositories.TransactionRepository
	Alerts       *repositories.AlertRepository
	Now          func() time.Time
}

func (s *ReportService) now() time.Time {
	return clockOrDefault(s.Now)
}

// InventoryReport - Active items grouped by category, optionally low stock only
func (s *ReportService) InventoryReport(ctx context.Context, category string, lowStock bool) (*InventoryReport, error) {
	if category != "" && !models.Category(category).Valid() {
		return nil, apperror.Validation("Invalid category %q", category)
	}
	now := s.now()
	items, _, err := s.Inventory.List(ctx, repositories.ItemFilter{
		Category: category,
		LowStock: lowStock,
	}, now)
	if err != nil {
		return nil, storeError(err, "")
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].ItemName < items[j].ItemName
	})

	report := &InventoryReport{
		GeneratedAt: now,
		Items:       items,
		TotalItems:  len(items),
		TotalValue:  decimal.Zero,
		Categories:  []CategorySummary{},
	}
	index := map[models.Category]int{}
	for _, item := range items {
		value := item.StockValue()
		report.TotalValue = report.TotalValue.Add(value)

		i, ok := index[item.Category]
		if !ok {
			i = len(report.Categories)
			index[item.Category] = i
			report.Categories = append(report.Categories, CategorySummary{Category: item.Category, Value: decimal.Zero})
		}
		c := &report.Categories[i]
		c.Items++
		c.Quantity += item.Quantity
		c.Value = c.Value.Add(value)
	}
	return report, nil
}

// TransactionReport - Transactions and their summary in [start, end]
func (s *ReportService) TransactionReport(ctx context.Context, start, end time.Time) (*TransactionReport, error) {
	if !end.IsZero() && end.Before(start) {
		return nil, apperror.Validation("end_date must not be before start_date")
	}
	transactions, err := s.Transactions.Range(ctx, start, end)
	if err != nil {
		return nil, storeError(err, "")
	}
	stats, err := s.Transactions.Stats(ctx, start, end)
	if err != nil {
		return nil, storeError(err, "")
	}
	return &TransactionReport{
		Start:        start,
		End:          end,
		Transactions: transactions,
		Summary:      stats,
	}, nil
}

func (s *ReportService) LowStockReport(ctx context.Context) (*LowStockReport, error) {
	items, err := s.Inventory.LowStock(ctx)
	if err != nil {
		return nil, storeError(err, "")
	}
	return &LowStockReport{Items: items, Count: len(items)}, nil
}

func (s *ReportService) ExpiryReport(ctx context.Context, days int) (*ExpiryReport, error) {
	if days < 0 {
		return nil, apperror.Validation("days must not be negative")
	}
	now := s.now()
	expiring, err := s.Inventory.ExpiringBetween(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, storeError(err, "")
	}
	expired, err := s.Inventory.ExpiredBefore(ctx, now)
	if err != nil {
		return nil, storeError(err, "")
	}
	return &ExpiryReport{
		Days:          days,
		Expiring:      expiring,
		Expired:       expired,
		ExpiringCount: len(expiring),
		ExpiredCount:  len(expired),
	}, nil
}

// Dashboard - Headline numbers for the front page, loaded concurrently
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	dash := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.Inventory.Stats(gctx, now)
		dash.Inventory = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.Transactions.Stats(gctx, dayStart, dayEnd)
		dash.Today = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.Alerts.Stats(gctx)
		dash.Alerts = stats
		return err
	})
	g.Go(func() error {
		recent, err := s.Transactions.Recent(gctx, 10)
		dash.RecentTransactions = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(err, "")
	}
	return dash, nil
}
