package postgres

import (
	"context"
	"database/sql"
	"errors"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

const commissionColumns = `id, unit_id, reservation_id, final_selling_price, commission_percentage, total_amount, vat,
	marketing_expenses, bank_fees, net_amount, commission_source, status, approved_at, paid_at, created_at, updated_at`

type commissionRepository struct {
	db DBTX
}

func NewCommissionRepository(db DBTX) repository.CommissionRepository {
	return &commissionRepository{db: db}
}

func scanCommission(row rowScanner) (*domain.Commission, error) {
	c := &domain.Commission{}
	err := row.Scan(&c.ID, &c.UnitID, &c.ReservationID, &c.FinalSellingPrice, &c.CommissionPercentage, &c.TotalAmount, &c.VAT,
		&c.MarketingExpenses, &c.BankFees, &c.NetAmount, &c.Source, &c.Status, &c.ApprovedAt, &c.PaidAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *commissionRepository) Create(ctx context.Context, c *domain.Commission) error {
	logger.EnterMethod("commissionRepository.Create", "reservationID", c.ReservationID)
	query := `INSERT INTO commissions (unit_id, reservation_id, final_selling_price, commission_percentage, total_amount, vat,
	          marketing_expenses, bank_fees, net_amount, commission_source, status, approved_at, paid_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, c.UnitID, c.ReservationID, c.FinalSellingPrice, c.CommissionPercentage, c.TotalAmount, c.VAT,
		c.MarketingExpenses, c.BankFees, c.NetAmount, c.Source, c.Status, c.ApprovedAt, c.PaidAt, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		err = uniqueAs(err, constraintOneCommission, domain.ErrDuplicateCommission,
			"reservation %d already has a commission", c.ReservationID)
		logger.ExitMethodWithError("commissionRepository.Create", err)
		return err
	}
	logger.ExitMethod("commissionRepository.Create", "commissionID", c.ID)
	return nil
}

func (r *commissionRepository) GetByID(ctx context.Context, id int32) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions WHERE id = $1`
	c, err := scanCommission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "commission", id)
	}
	return c, nil
}

func (r *commissionRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions WHERE id = $1 FOR UPDATE`
	c, err := scanCommission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "commission", id)
	}
	return c, nil
}

func (r *commissionRepository) GetByReservation(ctx context.Context, reservationID int32) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions WHERE reservation_id = $1`
	c, err := scanCommission(r.db.QueryRowContext(ctx, query, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("commission for reservation", reservationID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *commissionRepository) Update(ctx context.Context, c *domain.Commission) error {
	query := `UPDATE commissions SET total_amount=$1, vat=$2, marketing_expenses=$3, bank_fees=$4, net_amount=$5,
	          status=$6, approved_at=$7, paid_at=$8, updated_at=$9 WHERE id=$10`
	result, err := r.db.ExecContext(ctx, query, c.TotalAmount, c.VAT, c.MarketingExpenses, c.BankFees, c.NetAmount,
		c.Status, c.ApprovedAt, c.PaidAt, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundError("commission", c.ID)
	}
	return nil
}
