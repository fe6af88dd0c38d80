// src/services/aggregator.go
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/momoflow/src/logger"
	"github.com/username/momoflow/src/models"
)

const (
	ckDashboardSummary     = "agg_dashboard_summary"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// AggregatorService rebuilds the batch summary from persisted state and
// exports the dashboard document. It never accumulates running totals
// across a run: everything is re-derived from storage so a crash-and-retry
// produces an identical summary.
type AggregatorService struct {
	loader       Loader
	summaryCache *cache.Cache
}

func NewAggregatorService(loader Loader, summaryCache *cache.Cache) *AggregatorService {
	return &AggregatorService{loader: loader, summaryCache: summaryCache}
}

// Summary returns the aggregate view over all persisted transactions,
// served from cache when a recent computation exists.
func (s *AggregatorService) Summary() (models.BatchSummary, error) {
	if cached, found := s.summaryCache.Get(ckDashboardSummary); found {
		return cached.(models.BatchSummary), nil
	}
	txs, err := s.loader.ListTransactions()
	if err != nil {
		return models.BatchSummary{}, err
	}
	summary := buildSummary(txs)
	s.summaryCache.Set(ckDashboardSummary, summary, DefaultCacheExpiration)
	return summary, nil
}

// InvalidateCache drops the cached summary. Called after every load run so
// the next read reflects the new persisted state.
func (s *AggregatorService) InvalidateCache() {
	s.summaryCache.Delete(ckDashboardSummary)
}

// Export re-scans persisted transactions, builds the dashboard document and
// writes it to outputPath as indented JSON.
func (s *AggregatorService) Export(outputPath string) (*models.DashboardData, error) {
	txs, err := s.loader.ListTransactions()
	if err != nil {
		return nil, err
	}

	summary := buildSummary(txs)
	s.summaryCache.Set(ckDashboardSummary, summary, DefaultCacheExpiration)

	data := &models.DashboardData{
		Summary:      summary,
		Transactions: make([]models.DashboardTransaction, 0, len(txs)),
		Categories:   distinctCategories(txs),
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, tx := range txs {
		data.Transactions = append(data.Transactions, models.DashboardTransaction{
			Date:     tx.OccurredAt.UTC().Format(time.RFC3339),
			Phone:    MaskPhone(counterparty(tx)),
			Amount:   round2(tx.Amount),
			Fee:      round2(tx.Fee),
			Category: string(tx.Category),
			Status:   tx.Status,
		})
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding dashboard data: %w", err)
	}
	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("writing dashboard data: %w", err)
	}

	logger.L.Info("Dashboard data exported", "path", outputPath, "transactions", len(txs))
	return data, nil
}

// buildSummary computes totals with exact decimal arithmetic and only
// rounds at the edge. Average is defined as 0 for an empty set.
func buildSummary(txs []models.PersistedTransaction) models.BatchSummary {
	summary := models.BatchSummary{
		CategoryBreakdown: map[models.Category]models.CategoryRollup{},
	}

	total := decimal.Zero
	categoryTotals := map[models.Category]decimal.Decimal{}
	phones := map[string]bool{}

	for _, tx := range txs {
		summary.TotalTransactions++
		total = total.Add(tx.Amount)
		if tx.SenderPhone != "" {
			phones[tx.SenderPhone] = true
		}
		if tx.ReceiverPhone != "" {
			phones[tx.ReceiverPhone] = true
		}
		rollup := summary.CategoryBreakdown[tx.Category]
		rollup.Count++
		summary.CategoryBreakdown[tx.Category] = rollup
		categoryTotals[tx.Category] = categoryTotals[tx.Category].Add(tx.Amount)
	}
	for category, sum := range categoryTotals {
		rollup := summary.CategoryBreakdown[category]
		rollup.Total = round2(sum)
		summary.CategoryBreakdown[category] = rollup
	}

	summary.TotalVolume = round2(total)
	summary.ActiveUsers = len(phones)
	if summary.TotalTransactions > 0 {
		avg := total.Div(decimal.NewFromInt(int64(summary.TotalTransactions)))
		summary.AverageTransaction = round2(avg)
	}
	return summary
}

func distinctCategories(txs []models.PersistedTransaction) []string {
	seen := map[string]bool{}
	for _, tx := range txs {
		seen[string(tx.Category)] = true
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// counterparty picks the phone shown on the dashboard row: the sender when
// present, else the receiver.
func counterparty(tx models.PersistedTransaction) string {
	if tx.SenderPhone != "" {
		return tx.SenderPhone
	}
	return tx.ReceiverPhone
}

// MaskPhone hides the middle digits of a canonical phone number before it
// reaches the dashboard, keeping the prefix and the last three digits.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return "***"
	}
	return phone[:4] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-3:]
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
