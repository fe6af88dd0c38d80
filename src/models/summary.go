// src/models/summary.go
package models

import "time"

// Stage names the pipeline stage at which a record failed.
type Stage string

const (
	StageParse      Stage = "parse"
	StageNormalize  Stage = "normalize"
	StageCategorize Stage = "categorize"
	StageLoad       Stage = "load"
)

// DeadLetterEntry is the write-once artifact kept for every record that fell
// out of the pipeline. Owned exclusively by the dead-letter sink.
type DeadLetterEntry struct {
	Fragment  string    `json:"originalFragment"`
	Stage     Stage     `json:"stage"`
	Reason    string    `json:"reason"`
	BatchID   string    `json:"batchId"`
	Timestamp time.Time `json:"timestamp"`
}

// CategoryRollup is the per-category slice of a batch summary.
type CategoryRollup struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// BatchSummary is the aggregation over all persisted transactions, rebuilt
// fresh from storage on every run.
type BatchSummary struct {
	TotalTransactions  int                        `json:"totalTransactions"`
	TotalVolume        float64                    `json:"totalVolume"`
	AverageTransaction float64                    `json:"averageTransaction"`
	ActiveUsers        int                        `json:"activeUsers"`
	CategoryBreakdown  map[Category]CategoryRollup `json:"categoryBreakdown"`
}

// DashboardTransaction is one row of the exported transactions list. The
// phone is masked before it reaches the dashboard.
type DashboardTransaction struct {
	Date     string  `json:"date"`
	Phone    string  `json:"phone"`
	Amount   float64 `json:"amount"`
	Fee      float64 `json:"fee"`
	Category string  `json:"category"`
	Status   string  `json:"status"`
}

// DashboardData is the exact document shape the dashboard consumer reads.
type DashboardData struct {
	Summary      BatchSummary           `json:"summary"`
	Transactions []DashboardTransaction `json:"transactions"`
	Categories   []string               `json:"categories"`
	LastUpdated  string                 `json:"lastUpdated"`
}
