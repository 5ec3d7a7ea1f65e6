package repository

import (
	"context"
	"time"

	"reservation-settlement-backend/internal/domain"
)

// Methods named *ForUpdate lock the row until the surrounding transaction ends.

type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) error
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Reservation, error)
	Update(ctx context.Context, res *domain.Reservation) error
	ListReadyForTitleTransfer(ctx context.Context) ([]domain.Reservation, error)
}

type NegotiationRepository interface {
	Create(ctx context.Context, n *domain.NegotiationApproval) error
	GetByID(ctx context.Context, id int32) (*domain.NegotiationApproval, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.NegotiationApproval, error)
	GetPendingByReservation(ctx context.Context, reservationID int32) (*domain.NegotiationApproval, error)
	Update(ctx context.Context, n *domain.NegotiationApproval) error
	ListByReservation(ctx context.Context, reservationID int32) ([]domain.NegotiationApproval, error)
	ListPending(ctx context.Context) ([]domain.NegotiationApproval, error)
	ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]int32, error)
}

type CommissionRepository interface {
	Create(ctx context.Context, c *domain.Commission) error
	GetByID(ctx context.Context, id int32) (*domain.Commission, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Commission, error)
	GetByReservation(ctx context.Context, reservationID int32) (*domain.Commission, error)
	Update(ctx context.Context, c *domain.Commission) error
}

type DistributionRepository interface {
	Create(ctx context.Context, d *domain.CommissionDistribution) error
	GetByID(ctx context.Context, id int32) (*domain.CommissionDistribution, error)
	ListByCommission(ctx context.Context, commissionID int32) ([]domain.CommissionDistribution, error)
	Update(ctx context.Context, d *domain.CommissionDistribution) error
	Delete(ctx context.Context, id int32) error
	ListPaidSince(ctx context.Context, since time.Time) ([]domain.CommissionDistribution, error)
}

type FinancingRepository interface {
	Create(ctx context.Context, t *domain.CreditFinancingTracker) error
	GetByID(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error)
	GetByReservation(ctx context.Context, reservationID int32) (*domain.CreditFinancingTracker, error)
	Update(ctx context.Context, t *domain.CreditFinancingTracker) error
	ListOverdueIDs(ctx context.Context, now time.Time) ([]int32, error)
}

// Repositories is the set of repositories bound to one connection or transaction.
type Repositories struct {
	Reservations  ReservationRepository
	Negotiations  NegotiationRepository
	Commissions   CommissionRepository
	Distributions DistributionRepository
	Financing     FinancingRepository
}

// TxRunner runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(repos *Repositories) error) error
}
