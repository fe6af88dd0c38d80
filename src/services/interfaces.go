// src/services/interfaces.go
package services

import (
	"github.com/username/momoflow/src/models"
)

// Loader is the persistence boundary of the pipeline. The loader is the
// sole writer to transaction storage; everything else reads through
// ListTransactions.
type Loader interface {
	// Upsert idempotently persists one categorized transaction. A repeat
	// of an already-present key reports skipped-duplicate, not an error.
	// Business-rule breaches surface as *models.ConstraintViolation and
	// infrastructure failures wrap models.ErrStorageUnavailable.
	Upsert(tx models.CategorizedTransaction) (models.LoadResult, error)

	// ListTransactions returns every persisted transaction, newest first.
	ListTransactions() ([]models.PersistedTransaction, error)
}

// DeadLetters captures records that fell out of the pipeline. Entries are
// write-once; the sink never blocks or fails the run.
type DeadLetters interface {
	Capture(stage models.Stage, fragment string, cause error)
	Count() int
}
