// src/services/loader.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/momoflow/src/database"
	"github.com/username/momoflow/src/logger"
	"github.com/username/momoflow/src/models"
)

// LoaderService persists categorized transactions into the sqlite store.
// Commits are serialized with a mutex so the first-writer-wins upsert
// contract holds even if callers ever run stages in parallel.
type LoaderService struct {
	mu sync.Mutex
}

func NewLoaderService() *LoaderService { return &LoaderService{} }

var _ Loader = (*LoaderService)(nil)

// Upsert inserts or no-ops one transaction, keyed by the external reference
// when present, else by the content fingerprint. Invariants are re-checked
// here regardless of what the caller did upstream.
func (s *LoaderService) Upsert(tx models.CategorizedTransaction) (models.LoadResult, error) {
	if err := validateAtBoundary(tx); err != nil {
		return models.LoadResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := tx.Fingerprint()

	if tx.ReferenceID != "" {
		var id int64
		var storedHash string
		err := database.DB.QueryRow(
			`SELECT id, hash_id FROM transactions WHERE reference_id = ?`,
			tx.ReferenceID,
		).Scan(&id, &storedHash)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Fall through to insert.
		case err != nil:
			return models.LoadResult{}, storageError(err)
		case storedHash == hash:
			return models.LoadResult{Outcome: models.LoadSkippedDuplicate, ID: id}, nil
		default:
			// Same reference, changed content: the source re-issued the
			// record, take the newer version.
			if err := s.update(id, hash, tx); err != nil {
				if isUniqueConstraintErr(err) {
					// The re-issued content already lives in another row.
					// Leave both rows alone and report the one holding it.
					survivorID, lookupErr := s.lookupByHash(hash)
					if lookupErr != nil {
						return models.LoadResult{}, lookupErr
					}
					logger.L.Debug("Skipping duplicate transaction on upsert", "key", tx.UpsertKey())
					return models.LoadResult{Outcome: models.LoadSkippedDuplicate, ID: survivorID}, nil
				}
				return models.LoadResult{}, err
			}
			return models.LoadResult{Outcome: models.LoadUpdated, ID: id}, nil
		}
	} else {
		var id int64
		err := database.DB.QueryRow(
			`SELECT id FROM transactions WHERE hash_id = ?`, hash,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Fall through to insert.
		case err != nil:
			return models.LoadResult{}, storageError(err)
		default:
			return models.LoadResult{Outcome: models.LoadSkippedDuplicate, ID: id}, nil
		}
	}

	res, err := database.DB.Exec(
		`INSERT INTO transactions
			(hash_id, reference_id, amount, fee, occurred_at,
			 sender_phone, receiver_phone, body, status, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hash, nullable(tx.ReferenceID),
		tx.Amount.String(), tx.Fee.String(),
		tx.OccurredAt.UTC().Format(time.RFC3339),
		tx.SenderPhone, tx.ReceiverPhone, tx.Body, tx.Status, string(tx.Category),
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			// A concurrent writer won the race; resolve to its row.
			id, lookupErr := s.lookupID(tx, hash)
			if lookupErr != nil {
				return models.LoadResult{}, lookupErr
			}
			logger.L.Debug("Skipping duplicate transaction on upsert", "key", tx.UpsertKey())
			return models.LoadResult{Outcome: models.LoadSkippedDuplicate, ID: id}, nil
		}
		return models.LoadResult{}, storageError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.LoadResult{}, storageError(err)
	}
	return models.LoadResult{Outcome: models.LoadInserted, ID: id}, nil
}

func (s *LoaderService) update(id int64, hash string, tx models.CategorizedTransaction) error {
	_, err := database.DB.Exec(
		`UPDATE transactions SET
			hash_id = ?, amount = ?, fee = ?, occurred_at = ?,
			sender_phone = ?, receiver_phone = ?, body = ?, status = ?,
			category = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		hash, tx.Amount.String(), tx.Fee.String(),
		tx.OccurredAt.UTC().Format(time.RFC3339),
		tx.SenderPhone, tx.ReceiverPhone, tx.Body, tx.Status, string(tx.Category),
		id,
	)
	if err != nil {
		return storageError(err)
	}
	return nil
}

// lookupID resolves a failed insert to the row that already holds the key.
// A reference not found in storage means the constraint hit was on hash_id:
// a distinct reference carrying content another row already holds.
func (s *LoaderService) lookupID(tx models.CategorizedTransaction, hash string) (int64, error) {
	if tx.ReferenceID != "" {
		var id int64
		err := database.DB.QueryRow(`SELECT id FROM transactions WHERE reference_id = ?`, tx.ReferenceID).Scan(&id)
		switch {
		case err == nil:
			return id, nil
		case !errors.Is(err, sql.ErrNoRows):
			return 0, storageError(err)
		}
	}
	return s.lookupByHash(hash)
}

func (s *LoaderService) lookupByHash(hash string) (int64, error) {
	var id int64
	if err := database.DB.QueryRow(`SELECT id FROM transactions WHERE hash_id = ?`, hash).Scan(&id); err != nil {
		return 0, storageError(err)
	}
	return id, nil
}

// ListTransactions returns every persisted transaction, newest first. This
// is the read interface the aggregator rebuilds the summary from.
func (s *LoaderService) ListTransactions() ([]models.PersistedTransaction, error) {
	rows, err := database.DB.Query(
		`SELECT id, hash_id, COALESCE(reference_id, ''), amount, fee,
		        occurred_at, sender_phone, receiver_phone, body, status, category
		 FROM transactions ORDER BY occurred_at DESC, id DESC`)
	if err != nil {
		return nil, storageError(err)
	}
	defer rows.Close()

	var txs []models.PersistedTransaction
	for rows.Next() {
		var tx models.PersistedTransaction
		var amountStr, feeStr, occurredStr, categoryStr string
		if err := rows.Scan(&tx.ID, &tx.HashID, &tx.ReferenceID, &amountStr, &feeStr,
			&occurredStr, &tx.SenderPhone, &tx.ReceiverPhone, &tx.Body, &tx.Status,
			&categoryStr); err != nil {
			return nil, storageError(err)
		}
		if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("corrupt amount for transaction %d: %w", tx.ID, err)
		}
		if tx.Fee, err = decimal.NewFromString(feeStr); err != nil {
			return nil, fmt.Errorf("corrupt fee for transaction %d: %w", tx.ID, err)
		}
		if tx.OccurredAt, err = time.Parse(time.RFC3339, occurredStr); err != nil {
			return nil, fmt.Errorf("corrupt occurred_at for transaction %d: %w", tx.ID, err)
		}
		tx.Category = models.Category(categoryStr)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return txs, nil
}

// validateAtBoundary re-checks the invariants the normalizer is supposed to
// have enforced. Defense against a misbehaving caller.
func validateAtBoundary(tx models.CategorizedTransaction) error {
	if tx.Amount.LessThanOrEqual(decimal.Zero) {
		return &models.ConstraintViolation{Rule: "amount must be positive"}
	}
	if tx.Fee.IsNegative() {
		return &models.ConstraintViolation{Rule: "fee must not be negative"}
	}
	if tx.OccurredAt.IsZero() {
		return &models.ConstraintViolation{Rule: "occurred_at must be set"}
	}
	if tx.SenderPhone == "" && tx.ReceiverPhone == "" {
		return &models.ConstraintViolation{Rule: "at least one of sender and receiver must be present"}
	}
	if tx.SenderPhone != "" && tx.SenderPhone == tx.ReceiverPhone {
		return &models.ConstraintViolation{Rule: "sender and receiver must differ"}
	}
	if !tx.Category.IsValid() {
		return &models.ConstraintViolation{Rule: "category '" + string(tx.Category) + "' is not a known code"}
	}
	return nil
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
