package postgres

import (
	"context"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

const reservationColumns = `r.id, r.unit_id, r.created_by, r.client_name, r.client_mobile, r.client_nationality, r.client_iban,
	r.payment_method, r.down_payment_amount, r.down_payment_refundable, r.agreed_price, r.status, r.reservation_type,
	r.confirmed_at, r.cancelled_at, r.cancellation_reason, r.created_at, r.updated_at`

type reservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	err := row.Scan(&res.ID, &res.UnitID, &res.CreatedBy, &res.ClientName, &res.ClientMobile, &res.ClientNationality, &res.ClientIBAN,
		&res.PaymentMethod, &res.DownPaymentAmount, &res.DownPaymentRefundable, &res.AgreedPrice, &res.Status, &res.Type,
		&res.ConfirmedAt, &res.CancelledAt, &res.CancellationReason, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.Create", "unitID", res.UnitID)
	query := `INSERT INTO reservations (unit_id, created_by, client_name, client_mobile, client_nationality, client_iban,
	          payment_method, down_payment_amount, down_payment_refundable, agreed_price, status, reservation_type,
	          confirmed_at, cancelled_at, cancellation_reason, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, res.UnitID, res.CreatedBy, res.ClientName, res.ClientMobile, res.ClientNationality, res.ClientIBAN,
		res.PaymentMethod, res.DownPaymentAmount, res.DownPaymentRefundable, res.AgreedPrice, res.Status, res.Type,
		res.ConfirmedAt, res.CancelledAt, res.CancellationReason, res.CreatedAt, res.UpdatedAt).Scan(&res.ID)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err)
		return err
	}
	logger.ExitMethod("reservationRepository.Create", "reservationID", res.ID)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return res, nil
}

func (r *reservationRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1 FOR UPDATE`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return res, nil
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `UPDATE reservations SET agreed_price=$1, status=$2, confirmed_at=$3, cancelled_at=$4, cancellation_reason=$5, updated_at=$6 WHERE id=$7`
	result, err := r.db.ExecContext(ctx, query, res.AgreedPrice, res.Status, res.ConfirmedAt, res.CancelledAt, res.CancellationReason, res.UpdatedAt, res.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundError("reservation", res.ID)
	}
	return nil
}

// ListReadyForTitleTransfer returns confirmed reservations whose bank financing has completed.
func (r *reservationRepository) ListReadyForTitleTransfer(ctx context.Context) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r
	          JOIN credit_financing_trackers t ON t.reservation_id = r.id
	          WHERE r.status = $1 AND t.overall_status = $2
	          ORDER BY t.completed_at, r.id`
	logger.DatabaseCall("ListReadyForTitleTransfer", query)
	rows, err := r.db.QueryContext(ctx, query, domain.ReservationStatusConfirmed, domain.FinancingStatusCompleted)
	if err != nil {
		logger.DatabaseResult("ListReadyForTitleTransfer", 0, err)
		return nil, err
	}
	defer rows.Close()

	var list []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	logger.DatabaseResult("ListReadyForTitleTransfer", int64(len(list)), rows.Err())
	return list, rows.Err()
}
