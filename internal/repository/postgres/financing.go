package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

const trackerColumns = `id, reservation_id, assigned_to, bank_name, is_supported_bank, overall_status, rejection_reason,
	completed_at, created_at, updated_at`

type financingRepository struct {
	db DBTX
}

func NewFinancingRepository(db DBTX) repository.FinancingRepository {
	return &financingRepository{db: db}
}

func scanTracker(row rowScanner) (*domain.CreditFinancingTracker, error) {
	t := &domain.CreditFinancingTracker{}
	err := row.Scan(&t.ID, &t.ReservationID, &t.AssignedTo, &t.BankName, &t.IsSupportedBank, &t.OverallStatus, &t.RejectionReason,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// encodeStageData returns the jsonb text for data, or nil for SQL NULL.
func encodeStageData(data map[string]string) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *financingRepository) Create(ctx context.Context, t *domain.CreditFinancingTracker) error {
	logger.EnterMethod("financingRepository.Create", "reservationID", t.ReservationID)
	query := `INSERT INTO credit_financing_trackers (reservation_id, assigned_to, bank_name, is_supported_bank, overall_status,
	          rejection_reason, completed_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, t.ReservationID, t.AssignedTo, t.BankName, t.IsSupportedBank, t.OverallStatus,
		t.RejectionReason, t.CompletedAt, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		err = uniqueAs(err, constraintOneTracker, domain.ErrConflictingRequest,
			"reservation %d already has a financing tracker", t.ReservationID)
		logger.ExitMethodWithError("financingRepository.Create", err)
		return err
	}

	stageQuery := `INSERT INTO credit_financing_stages (tracker_id, stage_number, name, status, started_at, deadline, completed_at, data)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, s := range t.Stages {
		data, err := encodeStageData(s.Data)
		if err != nil {
			return fmt.Errorf("failed to encode stage %d data: %w", s.Number, err)
		}
		if _, err := r.db.ExecContext(ctx, stageQuery, t.ID, s.Number, s.Name, s.Status, s.StartedAt, s.Deadline, s.CompletedAt, data); err != nil {
			logger.ExitMethodWithError("financingRepository.Create", err, "stage", s.Number)
			return err
		}
	}
	logger.ExitMethod("financingRepository.Create", "trackerID", t.ID)
	return nil
}

func (r *financingRepository) GetByID(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM credit_financing_trackers WHERE id = $1`
	return r.get(ctx, query, "financing tracker", id)
}

func (r *financingRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM credit_financing_trackers WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, "financing tracker", id)
}

func (r *financingRepository) GetByReservation(ctx context.Context, reservationID int32) (*domain.CreditFinancingTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM credit_financing_trackers WHERE reservation_id = $1`
	return r.get(ctx, query, "financing tracker for reservation", reservationID)
}

func (r *financingRepository) get(ctx context.Context, query, entity string, key int32) (*domain.CreditFinancingTracker, error) {
	t, err := scanTracker(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError(entity, key)
	}
	if err != nil {
		return nil, err
	}
	if t.Stages, err = r.loadStages(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *financingRepository) loadStages(ctx context.Context, trackerID int32) ([]domain.FinancingStage, error) {
	query := `SELECT stage_number, name, status, started_at, deadline, completed_at, data
	          FROM credit_financing_stages WHERE tracker_id = $1 ORDER BY stage_number`
	rows, err := r.db.QueryContext(ctx, query, trackerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []domain.FinancingStage
	for rows.Next() {
		var s domain.FinancingStage
		var data []byte
		if err := rows.Scan(&s.Number, &s.Name, &s.Status, &s.StartedAt, &s.Deadline, &s.CompletedAt, &data); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.Data); err != nil {
				return nil, fmt.Errorf("failed to decode stage %d data: %w", s.Number, err)
			}
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(stages) != domain.StageCount {
		return nil, fmt.Errorf("financing tracker %d has %d stages, want %d", trackerID, len(stages), domain.StageCount)
	}
	return stages, nil
}

func (r *financingRepository) Update(ctx context.Context, t *domain.CreditFinancingTracker) error {
	query := `UPDATE credit_financing_trackers SET overall_status=$1, rejection_reason=$2, completed_at=$3, updated_at=$4 WHERE id=$5`
	result, err := r.db.ExecContext(ctx, query, t.OverallStatus, t.RejectionReason, t.CompletedAt, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundError("financing tracker", t.ID)
	}

	stageQuery := `UPDATE credit_financing_stages SET status=$1, started_at=$2, deadline=$3, completed_at=$4, data=$5
	               WHERE tracker_id=$6 AND stage_number=$7`
	for _, s := range t.Stages {
		data, err := encodeStageData(s.Data)
		if err != nil {
			return fmt.Errorf("failed to encode stage %d data: %w", s.Number, err)
		}
		if _, err := r.db.ExecContext(ctx, stageQuery, s.Status, s.StartedAt, s.Deadline, s.CompletedAt, data, t.ID, s.Number); err != nil {
			return err
		}
	}
	return nil
}

// ListOverdueIDs returns in-progress trackers with an in-progress stage past its deadline.
func (r *financingRepository) ListOverdueIDs(ctx context.Context, now time.Time) ([]int32, error) {
	query := `SELECT DISTINCT t.id FROM credit_financing_trackers t
	          JOIN credit_financing_stages s ON s.tracker_id = t.id
	          WHERE t.overall_status = $1 AND s.status = $2 AND s.deadline < $3
	          ORDER BY t.id`
	logger.DatabaseCall("ListOverdueTrackerIDs", query, "now", now)
	ids, err := queryIDs(ctx, r.db, query, domain.FinancingStatusInProgress, domain.StageStatusInProgress, now)
	logger.DatabaseResult("ListOverdueTrackerIDs", int64(len(ids)), err)
	return ids, err
}
