// src/models/transaction.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawEntry is a single SMS entry lifted out of the XML export before any
// cleaning. Every field is the untouched attribute/child text of the node;
// empty string means the field was absent.
type RawEntry struct {
	Index     int    `json:"index"` // position in the document, 1-based
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	Phone     string `json:"phone"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Fragment  string `json:"fragment"` // reconstructed XML of the node, for dead-lettering
}

// NormalizedTransaction is a RawEntry after field normalization. Amount is
// strictly positive, OccurredAt is a real timestamp and at least one of
// SenderPhone/ReceiverPhone is set (empty string means absent).
type NormalizedTransaction struct {
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SenderPhone   string          `json:"sender_phone,omitempty"`
	ReceiverPhone string          `json:"receiver_phone,omitempty"`
	Body          string          `json:"body"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Status        string          `json:"status"`
}

// CategorizedTransaction is a NormalizedTransaction with its category code
// assigned. CategoryUnknown is a valid terminal outcome, not a failure.
type CategorizedTransaction struct {
	NormalizedTransaction
	Category Category `json:"category"`
}

// Fingerprint returns the content hash used for duplicate detection when no
// external reference is present: sha256 over the identity fields.
func (t *NormalizedTransaction) Fingerprint() string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		t.SenderPhone, t.ReceiverPhone,
		t.Amount.String(), t.OccurredAt.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// UpsertKey is the idempotency key for the loader: the external reference
// when the SMS carried one, else the content fingerprint.
func (t *NormalizedTransaction) UpsertKey() string {
	if t.ReferenceID != "" {
		return t.ReferenceID
	}
	return t.Fingerprint()
}

// LoadOutcome is the result kind of one loader upsert.
type LoadOutcome string

const (
	LoadInserted         LoadOutcome = "inserted"
	LoadUpdated          LoadOutcome = "updated"
	LoadSkippedDuplicate LoadOutcome = "skipped-duplicate"
)

// LoadResult reports what the loader did with one transaction and the
// storage identifier it now lives under.
type LoadResult struct {
	Outcome LoadOutcome `json:"outcome"`
	ID      int64       `json:"id"`
}

// PersistedTransaction is one row of the transactions table as read back by
// the aggregator.
type PersistedTransaction struct {
	ID            int64
	HashID        string
	ReferenceID   string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	OccurredAt    time.Time
	SenderPhone   string
	ReceiverPhone string
	Body          string
	Status        string
	Category      Category
}
