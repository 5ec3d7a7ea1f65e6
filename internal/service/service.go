package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"reservation-settlement-backend/internal/domain"
)

type ReservationService interface {
	CreateReservation(ctx context.Context, in domain.Reservation) (*domain.Reservation, error)
	GetReservation(ctx context.Context, id int32) (*domain.Reservation, error)
	ConfirmReservation(ctx context.Context, id int32) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, id int32, reason string) (*domain.Reservation, error)
	ListReadyForTitleTransfer(ctx context.Context) ([]domain.Reservation, error)
}

type NegotiationService interface {
	OpenNegotiation(ctx context.Context, reservationID, requestedBy int32, reason string, proposedPrice decimal.Decimal) (*domain.NegotiationApproval, error)
	ApproveNegotiation(ctx context.Context, id, approvedBy int32, notes string) (*domain.NegotiationApproval, error)
	RejectNegotiation(ctx context.Context, id, approvedBy int32, reason string) (*domain.NegotiationApproval, error)
	ExpireNegotiation(ctx context.Context, id int32) (bool, error)
	ApplyNegotiatedPrice(ctx context.Context, id int32) (*domain.Reservation, error)
	GetNegotiation(ctx context.Context, id int32) (*domain.NegotiationApproval, error)
	ListNegotiations(ctx context.Context, reservationID int32) ([]domain.NegotiationApproval, error)
	ListPendingNegotiations(ctx context.Context) ([]domain.NegotiationApproval, error)
	ListExpiredNegotiationIDs(ctx context.Context) ([]int32, error)
}

type CommissionService interface {
	CreateCommission(ctx context.Context, reservationID int32, finalSellingPrice, percentage decimal.Decimal, source domain.CommissionSource) (*domain.Commission, error)
	UpdateExpenses(ctx context.Context, id int32, marketingExpenses, bankFees decimal.Decimal) (*domain.Commission, error)
	ApproveCommission(ctx context.Context, id int32) (*domain.Commission, error)
	MarkCommissionPaid(ctx context.Context, id int32) (*domain.Commission, error)
	GetCommission(ctx context.Context, id int32) (*domain.Commission, error)
	GetCommissionByReservation(ctx context.Context, reservationID int32) (*domain.Commission, error)
	GetCommissionSummary(ctx context.Context, id int32) (*domain.CommissionSummary, error)

	AddDistribution(ctx context.Context, commissionID int32, in domain.DistributionInput) (*domain.CommissionDistribution, error)
	DistributeLeadGeneration(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error)
	DistributePersuasion(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error)
	DistributeClosing(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error)
	DistributeManagement(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error)
	ApproveDistribution(ctx context.Context, id, approverID int32) (*domain.CommissionDistribution, error)
	RejectDistribution(ctx context.Context, id, approverID int32, notes string) (*domain.CommissionDistribution, error)
	UpdateDistributionPercentage(ctx context.Context, id int32, percentage decimal.Decimal) (*domain.CommissionDistribution, error)
	MarkDistributionPaid(ctx context.Context, id int32) (*domain.CommissionDistribution, error)
	DeleteDistribution(ctx context.Context, id int32) error
	ListDistributions(ctx context.Context, commissionID int32) ([]domain.CommissionDistribution, error)
	ListPaidDistributions(ctx context.Context, since time.Time) ([]domain.CommissionDistribution, error)
}

type FinancingService interface {
	InitializeTracker(ctx context.Context, reservationID, assignee int32, isSupportedBank bool, bankName string) (*domain.CreditFinancingTracker, error)
	CompleteStage(ctx context.Context, id int32, stage int, data map[string]string) (*domain.CreditFinancingTracker, error)
	AdvanceTracker(ctx context.Context, id int32, data map[string]string) (*domain.CreditFinancingTracker, error)
	RejectTracker(ctx context.Context, id int32, reason string) (*domain.CreditFinancingTracker, error)
	CancelTracker(ctx context.Context, id int32, reason string) (*domain.CreditFinancingTracker, error)
	FlagOverdue(ctx context.Context, id int32) ([]int, error)
	GetTracker(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error)
	GetTrackerByReservation(ctx context.Context, reservationID int32) (*domain.CreditFinancingTracker, error)
	ListOverdueTrackerIDs(ctx context.Context) ([]int32, error)
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
