package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"reservation-settlement-backend/internal/domain"
)

const (
	uniqueViolation = "23505"

	constraintOnePendingNegotiation = "negotiation_approvals_one_pending_idx"
	constraintOneCommission         = "commissions_reservation_id_key"
	constraintOneTracker            = "credit_financing_trackers_reservation_id_key"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// notFound converts sql.ErrNoRows into the domain's not-found error.
func notFound(err error, entity string, id int32) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError(entity, id)
	}
	return err
}

// uniqueAs maps a unique violation on constraint to kind.
func uniqueAs(err error, constraint string, kind error, format string, args ...any) error {
	if isUniqueViolation(err, constraint) {
		return fmt.Errorf(format+": %w", append(args, kind)...)
	}
	return err
}
