package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

const negotiationColumns = `id, reservation_id, requested_by, approved_by, status, reason, original_price, proposed_price,
	manager_notes, deadline_at, responded_at, created_at, updated_at`

type negotiationRepository struct {
	db DBTX
}

func NewNegotiationRepository(db DBTX) repository.NegotiationRepository {
	return &negotiationRepository{db: db}
}

func scanNegotiation(row rowScanner) (*domain.NegotiationApproval, error) {
	n := &domain.NegotiationApproval{}
	err := row.Scan(&n.ID, &n.ReservationID, &n.RequestedBy, &n.ApprovedBy, &n.Status, &n.Reason, &n.OriginalPrice, &n.ProposedPrice,
		&n.ManagerNotes, &n.DeadlineAt, &n.RespondedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *negotiationRepository) Create(ctx context.Context, n *domain.NegotiationApproval) error {
	logger.EnterMethod("negotiationRepository.Create", "reservationID", n.ReservationID)
	query := `INSERT INTO negotiation_approvals (reservation_id, requested_by, approved_by, status, reason, original_price, proposed_price,
	          manager_notes, deadline_at, responded_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, n.ReservationID, n.RequestedBy, n.ApprovedBy, n.Status, n.Reason, n.OriginalPrice, n.ProposedPrice,
		n.ManagerNotes, n.DeadlineAt, n.RespondedAt, n.CreatedAt, n.UpdatedAt).Scan(&n.ID)
	if err != nil {
		err = uniqueAs(err, constraintOnePendingNegotiation, domain.ErrConflictingRequest,
			"reservation %d already has a pending negotiation", n.ReservationID)
		logger.ExitMethodWithError("negotiationRepository.Create", err)
		return err
	}
	logger.ExitMethod("negotiationRepository.Create", "negotiationID", n.ID)
	return nil
}

func (r *negotiationRepository) GetByID(ctx context.Context, id int32) (*domain.NegotiationApproval, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiation_approvals WHERE id = $1`
	n, err := scanNegotiation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "negotiation", id)
	}
	return n, nil
}

func (r *negotiationRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.NegotiationApproval, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiation_approvals WHERE id = $1 FOR UPDATE`
	n, err := scanNegotiation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "negotiation", id)
	}
	return n, nil
}

// GetPendingByReservation returns nil, nil when the reservation has no pending request.
func (r *negotiationRepository) GetPendingByReservation(ctx context.Context, reservationID int32) (*domain.NegotiationApproval, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiation_approvals WHERE reservation_id = $1 AND status = $2`
	n, err := scanNegotiation(r.db.QueryRowContext(ctx, query, reservationID, domain.NegotiationStatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *negotiationRepository) Update(ctx context.Context, n *domain.NegotiationApproval) error {
	query := `UPDATE negotiation_approvals SET approved_by=$1, status=$2, manager_notes=$3, responded_at=$4, updated_at=$5 WHERE id=$6`
	result, err := r.db.ExecContext(ctx, query, n.ApprovedBy, n.Status, n.ManagerNotes, n.RespondedAt, n.UpdatedAt, n.ID)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.NotFoundError("negotiation", n.ID)
	}
	return nil
}

func (r *negotiationRepository) ListByReservation(ctx context.Context, reservationID int32) ([]domain.NegotiationApproval, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiation_approvals WHERE reservation_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, reservationID)
}

func (r *negotiationRepository) ListPending(ctx context.Context) ([]domain.NegotiationApproval, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiation_approvals WHERE status = $1 ORDER BY deadline_at, id`
	return r.list(ctx, query, domain.NegotiationStatusPending)
}

func (r *negotiationRepository) list(ctx context.Context, query string, args ...any) ([]domain.NegotiationApproval, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.NegotiationApproval
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// ListExpiredPendingIDs returns pending requests whose deadline has passed.
func (r *negotiationRepository) ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]int32, error) {
	query := `SELECT id FROM negotiation_approvals WHERE status = $1 AND deadline_at < $2 ORDER BY deadline_at, id`
	logger.DatabaseCall("ListExpiredPendingIDs", query, "now", now)
	ids, err := queryIDs(ctx, r.db, query, domain.NegotiationStatusPending, now)
	logger.DatabaseResult("ListExpiredPendingIDs", int64(len(ids)), err)
	return ids, err
}

func queryIDs(ctx context.Context, db DBTX, query string, args ...any) ([]int32, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
