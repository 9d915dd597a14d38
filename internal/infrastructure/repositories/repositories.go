// Package repositories contains the Postgres persistence layer. Repositories
// accept an optional *sqlx.Tx so services can compose several writes into one
// transaction; a nil tx falls back to the pool.
package repositories

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
)

// querier returns the executor for a call: the transaction when one is
// in flight, the pool otherwise.
func querier(db *sqlx.DB, tx *sqlx.Tx) sqlx.ExtContext {
	if tx != nil {
		return tx
	}
	return db
}

// mapPqError translates driver errors to domain sentinels. Unique violations
// become ErrAlreadyProcessed and lock timeouts become a retryable Busy error;
// everything else passes through for the caller to wrap.
func mapPqError(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		return domainerrors.ErrAlreadyProcessed
	case "55P03": // lock_not_available
		return domainerrors.Busy(err)
	case "57014": // query_canceled, raised when lock_timeout fires
		return domainerrors.Busy(err)
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique violation
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
