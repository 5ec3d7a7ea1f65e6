package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

type financingService struct {
	tx    repository.TxRunner
	repos *repository.Repositories
	now   Clock
}

func NewFinancingService(tx repository.TxRunner, repos *repository.Repositories, clock Clock) FinancingService {
	return &financingService{tx: tx, repos: repos, now: clockOrDefault(clock)}
}

func (s *financingService) InitializeTracker(ctx context.Context, reservationID, assignee int32, isSupportedBank bool, bankName string) (*domain.CreditFinancingTracker, error) {
	logger.EnterMethod("financingService.InitializeTracker", "reservationID", reservationID, "assignee", assignee)

	var t *domain.CreditFinancingTracker
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		res, err := repos.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		existing, err := repos.Financing.GetByReservation(ctx, reservationID)
		switch {
		case err == nil:
			return fmt.Errorf("reservation %d already has financing tracker %d: %w", reservationID, existing.ID, domain.ErrConflictingRequest)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if t, err = domain.NewCreditFinancingTracker(res, assignee, isSupportedBank, bankName, s.now().UTC()); err != nil {
			return err
		}
		return repos.Financing.Create(ctx, t)
	})
	if err != nil {
		logger.ExitMethodWithError("financingService.InitializeTracker", err, "reservationID", reservationID)
		return nil, err
	}

	logger.ExitMethod("financingService.InitializeTracker", "trackerID", t.ID)
	return t, nil
}

func (s *financingService) CompleteStage(ctx context.Context, id int32, stage int, data map[string]string) (*domain.CreditFinancingTracker, error) {
	return s.mutate(ctx, "CompleteStage", id, func(t *domain.CreditFinancingTracker, now time.Time) error {
		return t.CompleteStage(stage, data, now)
	})
}

func (s *financingService) AdvanceTracker(ctx context.Context, id int32, data map[string]string) (*domain.CreditFinancingTracker, error) {
	return s.mutate(ctx, "AdvanceTracker", id, func(t *domain.CreditFinancingTracker, now time.Time) error {
		return t.Advance(data, now)
	})
}

func (s *financingService) RejectTracker(ctx context.Context, id int32, reason string) (*domain.CreditFinancingTracker, error) {
	return s.mutate(ctx, "RejectTracker", id, func(t *domain.CreditFinancingTracker, now time.Time) error {
		return t.Reject(reason, now)
	})
}

func (s *financingService) CancelTracker(ctx context.Context, id int32, reason string) (*domain.CreditFinancingTracker, error) {
	return s.mutate(ctx, "CancelTracker", id, func(t *domain.CreditFinancingTracker, now time.Time) error {
		return t.Cancel(reason, now)
	})
}

func (s *financingService) mutate(ctx context.Context, method string, id int32, fn func(t *domain.CreditFinancingTracker, now time.Time) error) (*domain.CreditFinancingTracker, error) {
	method = "financingService." + method
	logger.EnterMethod(method, "trackerID", id)

	var t *domain.CreditFinancingTracker
	var fromStage int
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if t, err = repos.Financing.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		fromStage = t.CurrentStage()
		if err := fn(t, s.now().UTC()); err != nil {
			return err
		}
		return repos.Financing.Update(ctx, t)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "trackerID", id)
		return nil, err
	}

	logger.Info("Financing tracker updated", "trackerID", id, "status", t.OverallStatus, "fromStage", fromStage, "toStage", t.CurrentStage())
	logger.ExitMethod(method, "trackerID", id, "status", t.OverallStatus, "currentStage", t.CurrentStage())
	return t, nil
}

// FlagOverdue marks late in-progress stages of one tracker and returns their
// numbers. Nothing is written when no stage is late.
func (s *financingService) FlagOverdue(ctx context.Context, id int32) ([]int, error) {
	var flagged []int
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		t, err := repos.Financing.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if flagged = t.FlagOverdue(s.now().UTC()); len(flagged) == 0 {
			return nil
		}
		return repos.Financing.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	if len(flagged) > 0 {
		logger.Info("Financing stages flagged overdue", "trackerID", id, "stages", flagged)
	}
	return flagged, nil
}

func (s *financingService) GetTracker(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error) {
	return s.repos.Financing.GetByID(ctx, id)
}

func (s *financingService) GetTrackerByReservation(ctx context.Context, reservationID int32) (*domain.CreditFinancingTracker, error) {
	return s.repos.Financing.GetByReservation(ctx, reservationID)
}

func (s *financingService) ListOverdueTrackerIDs(ctx context.Context) ([]int32, error) {
	return s.repos.Financing.ListOverdueIDs(ctx, s.now().UTC())
}
