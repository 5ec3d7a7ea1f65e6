package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

type negotiationService struct {
	tx     repository.TxRunner
	repos  *repository.Repositories
	window time.Duration
	now    Clock
}

// NewNegotiationService builds the price negotiation gate. A window of zero
// uses domain.DefaultNegotiationWindow.
func NewNegotiationService(tx repository.TxRunner, repos *repository.Repositories, window time.Duration, clock Clock) NegotiationService {
	if window <= 0 {
		window = domain.DefaultNegotiationWindow
	}
	return &negotiationService{tx: tx, repos: repos, window: window, now: clockOrDefault(clock)}
}

func (s *negotiationService) OpenNegotiation(ctx context.Context, reservationID, requestedBy int32, reason string, proposedPrice decimal.Decimal) (*domain.NegotiationApproval, error) {
	logger.EnterMethod("negotiationService.OpenNegotiation", "reservationID", reservationID, "requestedBy", requestedBy)

	var n *domain.NegotiationApproval
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		res, err := repos.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		pending, err := repos.Negotiations.GetPendingByReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if pending != nil {
			return fmt.Errorf("reservation %d already has pending negotiation %d: %w", reservationID, pending.ID, domain.ErrConflictingRequest)
		}
		if n, err = domain.OpenNegotiation(res, requestedBy, reason, proposedPrice, s.window, s.now().UTC()); err != nil {
			return err
		}
		return repos.Negotiations.Create(ctx, n)
	})
	if err != nil {
		logger.ExitMethodWithError("negotiationService.OpenNegotiation", err, "reservationID", reservationID)
		return nil, err
	}

	logger.ExitMethod("negotiationService.OpenNegotiation", "negotiationID", n.ID, "deadlineAt", n.DeadlineAt)
	return n, nil
}

func (s *negotiationService) ApproveNegotiation(ctx context.Context, id, approvedBy int32, notes string) (*domain.NegotiationApproval, error) {
	return s.resolve(ctx, "ApproveNegotiation", id, func(n *domain.NegotiationApproval, now time.Time) error {
		return n.Approve(approvedBy, notes, now)
	})
}

func (s *negotiationService) RejectNegotiation(ctx context.Context, id, approvedBy int32, reason string) (*domain.NegotiationApproval, error) {
	return s.resolve(ctx, "RejectNegotiation", id, func(n *domain.NegotiationApproval, now time.Time) error {
		return n.Reject(approvedBy, reason, now)
	})
}

func (s *negotiationService) resolve(ctx context.Context, method string, id int32, fn func(n *domain.NegotiationApproval, now time.Time) error) (*domain.NegotiationApproval, error) {
	method = "negotiationService." + method
	logger.EnterMethod(method, "negotiationID", id)

	var n *domain.NegotiationApproval
	var from domain.NegotiationStatus
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if n, err = repos.Negotiations.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		from = n.Status
		if err := fn(n, s.now().UTC()); err != nil {
			return err
		}
		return repos.Negotiations.Update(ctx, n)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "negotiationID", id)
		return nil, err
	}

	logger.Info("Negotiation transitioned", "negotiationID", id, "reservationID", n.ReservationID, "from", from, "to", n.Status)
	logger.ExitMethod(method, "negotiationID", id, "status", n.Status)
	return n, nil
}

// ExpireNegotiation closes a pending request whose deadline has passed. The
// status is re-read under the row lock, so a request resolved by a manager in
// the meantime is left alone and false is returned.
func (s *negotiationService) ExpireNegotiation(ctx context.Context, id int32) (bool, error) {
	var expired bool
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		n, err := repos.Negotiations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if expired, err = n.Expire(s.now().UTC()); err != nil || !expired {
			return err
		}
		return repos.Negotiations.Update(ctx, n)
	})
	if err != nil {
		return false, err
	}
	if expired {
		logger.Info("Negotiation expired", "negotiationID", id)
	}
	return expired, nil
}

// ApplyNegotiatedPrice copies an approved proposed price onto the reservation.
func (s *negotiationService) ApplyNegotiatedPrice(ctx context.Context, id int32) (*domain.Reservation, error) {
	logger.EnterMethod("negotiationService.ApplyNegotiatedPrice", "negotiationID", id)

	var res *domain.Reservation
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		n, err := repos.Negotiations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if n.Status != domain.NegotiationStatusApproved {
			return fmt.Errorf("negotiation %d is %s: %w", id, n.Status, domain.ErrNotApproved)
		}
		if res, err = repos.Reservations.GetByIDForUpdate(ctx, n.ReservationID); err != nil {
			return err
		}
		if err := res.ApplyPrice(n.ProposedPrice, s.now().UTC()); err != nil {
			return err
		}
		return repos.Reservations.Update(ctx, res)
	})
	if err != nil {
		logger.ExitMethodWithError("negotiationService.ApplyNegotiatedPrice", err, "negotiationID", id)
		return nil, err
	}

	logger.ExitMethod("negotiationService.ApplyNegotiatedPrice", "reservationID", res.ID, "agreedPrice", res.AgreedPrice)
	return res, nil
}

func (s *negotiationService) GetNegotiation(ctx context.Context, id int32) (*domain.NegotiationApproval, error) {
	return s.repos.Negotiations.GetByID(ctx, id)
}

func (s *negotiationService) ListNegotiations(ctx context.Context, reservationID int32) ([]domain.NegotiationApproval, error) {
	return s.repos.Negotiations.ListByReservation(ctx, reservationID)
}

func (s *negotiationService) ListPendingNegotiations(ctx context.Context) ([]domain.NegotiationApproval, error) {
	return s.repos.Negotiations.ListPending(ctx)
}

func (s *negotiationService) ListExpiredNegotiationIDs(ctx context.Context) ([]int32, error) {
	return s.repos.Negotiations.ListExpiredPendingIDs(ctx, s.now().UTC())
}
