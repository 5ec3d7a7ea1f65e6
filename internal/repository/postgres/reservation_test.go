package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/repository/postgres"
)

var reservationCols = []string{"id", "unit_id", "created_by", "client_name", "client_mobile", "client_nationality", "client_iban",
	"payment_method", "down_payment_amount", "down_payment_refundable", "agreed_price", "status", "reservation_type",
	"confirmed_at", "cancelled_at", "cancellation_reason", "created_at", "updated_at"}

func newMock(t *testing.T) (sqlmock.Sqlmock, *postgres.Store) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return mock, postgres.NewStore(db)
}

func TestReservationRepository_Create(t *testing.T) {
	mock, store := newMock(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	res := &domain.Reservation{
		UnitID:            7,
		CreatedBy:         3,
		ClientName:        "Sara Ahmed",
		PaymentMethod:     domain.PaymentMethodBankFinancing,
		DownPaymentAmount: decimal.RequireFromString("50000"),
		AgreedPrice:       decimal.RequireFromString("1000000"),
		Status:            domain.ReservationStatusUnderNegotiation,
		Type:              domain.ReservationTypeNegotiation,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	mock.ExpectQuery("INSERT INTO reservations").
		WithArgs(res.UnitID, res.CreatedBy, res.ClientName, "", "", "", "bank_financing", sqlmock.AnyArg(), false, sqlmock.AnyArg(),
			"under_negotiation", "negotiation", nil, nil, "", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	err := store.Reservations.Create(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, int32(11), res.ID)
}

func TestReservationRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock, store := newMock(t)
		rows := sqlmock.NewRows(reservationCols).
			AddRow(11, 7, 3, "Sara Ahmed", "0500000000", "SA", "SA0380000000608010167519", "bank_financing", "50000.00", true, "950000.00",
				"confirmed", "negotiation", now, nil, "", now, now)
		mock.ExpectQuery(`SELECT (.+) FROM reservations r WHERE r.id = \$1$`).
			WithArgs(int32(11)).
			WillReturnRows(rows)

		res, err := store.Reservations.GetByID(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusConfirmed, res.Status)
		assert.True(t, res.AgreedPrice.Equal(decimal.RequireFromString("950000")))
		require.NotNil(t, res.ConfirmedAt)
		assert.Nil(t, res.CancelledAt)
	})

	t.Run("Not found", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery("SELECT (.+) FROM reservations r WHERE r.id = \\$1 FOR UPDATE").
			WithArgs(int32(99)).
			WillReturnRows(sqlmock.NewRows(reservationCols))

		_, err := store.Reservations.GetByIDForUpdate(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestReservationRepository_Update(t *testing.T) {
	mock, store := newMock(t)
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	res := &domain.Reservation{ID: 11, AgreedPrice: decimal.RequireFromString("950000"), Status: domain.ReservationStatusConfirmed, ConfirmedAt: &now, UpdatedAt: now}

	mock.ExpectExec("UPDATE reservations SET").
		WithArgs(sqlmock.AnyArg(), "confirmed", now, nil, "", now, int32(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Reservations.Update(context.Background(), res))

	mock.ExpectExec("UPDATE reservations SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.Reservations.Update(context.Background(), res), domain.ErrNotFound)
}

func TestReservationRepository_ListReadyForTitleTransfer(t *testing.T) {
	mock, store := newMock(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(reservationCols).
		AddRow(11, 7, 3, "Sara Ahmed", "", "", "", "bank_financing", "0", false, "950000.00", "confirmed", "negotiation", now, nil, "", now, now).
		AddRow(12, 8, 3, "Omar Khalid", "", "", "", "bank_financing", "0", false, "700000.00", "confirmed", "confirmed_reservation", now, nil, "", now, now)
	mock.ExpectQuery("SELECT (.+) FROM reservations r\\s+JOIN credit_financing_trackers t").
		WithArgs("confirmed", "completed").
		WillReturnRows(rows)

	list, err := store.Reservations.ListReadyForTitleTransfer(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int32(12), list[1].ID)
}
