package postgres

import (
	"context"
	"time"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

const distributionColumns = `id, commission_id, recipient_id, type, external_name, bank_account, percentage, amount,
	status, approved_by, approved_at, paid_at, notes, created_at, updated_at`

type distributionRepository struct {
	db DBTX
}

func NewDistributionRepository(db DBTX) repository.DistributionRepository {
	return &distributionRepository{db: db}
}

func scanDistribution(row rowScanner) (*domain.CommissionDistribution, error) {
	d := &domain.CommissionDistribution{}
	err := row.Scan(&d.ID, &d.CommissionID, &d.RecipientID, &d.Type, &d.ExternalName, &d.BankAccount, &d.Percentage, &d.Amount,
		&d.Status, &d.ApprovedBy, &d.ApprovedAt, &d.PaidAt, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *distributionRepository) Create(ctx context.Context, d *domain.CommissionDistribution) error {
	logger.EnterMethod("distributionRepository.Create", "commissionID", d.CommissionID, "type", d.Type)
	query := `INSERT INTO commission_distributions (commission_id, recipient_id, type, external_name, bank_account, percentage, amount,
	          status, approved_by, approved_at, paid_at, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, d.CommissionID, d.RecipientID, d.Type, d.ExternalName, d.BankAccount, d.Percentage, d.Amount,
		d.Status, d.ApprovedBy, d.ApprovedAt, d.PaidAt, d.Notes, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		logger.ExitMethodWithError("distributionRepository.Create", err)
		return err
	}
	logger.ExitMethod("distributionRepository.Create", "distributionID", d.ID)
	return nil
}

func (r *distributionRepository) GetByID(ctx context.Context, id int32) (*domain.CommissionDistribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM commission_distributions WHERE id = $1`
	d, err := scanDistribution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "distribution", id)
	}
	return d, nil
}

func (r *distributionRepository) ListByCommission(ctx context.Context, commissionID int32) ([]domain.CommissionDistribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM commission_distributions WHERE commission_id = $1 ORDER BY id`
	return r.list(ctx, query, commissionID)
}

func (r *distributionRepository) Update(ctx context.Context, d *domain.CommissionDistribution) error {
	query := `UPDATE commission_distributions SET percentage=$1, amount=$2, status=$3, approved_by=$4, approved_at=$5,
	          paid_at=$6, notes=$7, updated_at=$8 WHERE id=$9`
	result, err := r.db.ExecContext(ctx, query, d.Percentage, d.Amount, d.Status, d.ApprovedBy, d.ApprovedAt,
		d.PaidAt, d.Notes, d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundError("distribution", d.ID)
	}
	return nil
}

// Delete removes a distribution that is still pending.
func (r *distributionRepository) Delete(ctx context.Context, id int32) error {
	query := `DELETE FROM commission_distributions WHERE id = $1 AND status = $2`
	logger.DatabaseCall("DeleteDistribution", query, "distributionID", id)
	result, err := r.db.ExecContext(ctx, query, id, domain.DistributionStatusPending)
	if err != nil {
		logger.DatabaseResult("DeleteDistribution", 0, err)
		return err
	}
	n, _ := result.RowsAffected()
	logger.DatabaseResult("DeleteDistribution", n, nil)
	if n == 0 {
		return domain.NotFoundError("pending distribution", id)
	}
	return nil
}

func (r *distributionRepository) ListPaidSince(ctx context.Context, since time.Time) ([]domain.CommissionDistribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM commission_distributions WHERE status = $1 AND paid_at >= $2 ORDER BY paid_at, id`
	return r.list(ctx, query, domain.DistributionStatusPaid, since)
}

func (r *distributionRepository) list(ctx context.Context, query string, args ...any) ([]domain.CommissionDistribution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.CommissionDistribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}
