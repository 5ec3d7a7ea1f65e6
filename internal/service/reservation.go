package service

import (
	"context"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

type reservationService struct {
	tx    repository.TxRunner
	repos *repository.Repositories
	now   Clock
}

func NewReservationService(tx repository.TxRunner, repos *repository.Repositories, clock Clock) ReservationService {
	return &reservationService{tx: tx, repos: repos, now: clockOrDefault(clock)}
}

func (s *reservationService) CreateReservation(ctx context.Context, in domain.Reservation) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.CreateReservation", "unitID", in.UnitID, "type", in.Type)

	res, err := domain.NewReservation(in, s.now().UTC())
	if err != nil {
		logger.ExitMethodWithError("reservationService.CreateReservation", err)
		return nil, err
	}
	if err := s.repos.Reservations.Create(ctx, res); err != nil {
		logger.ExitMethodWithError("reservationService.CreateReservation", err)
		return nil, err
	}

	logger.ExitMethod("reservationService.CreateReservation", "reservationID", res.ID, "status", res.Status)
	return res, nil
}

func (s *reservationService) GetReservation(ctx context.Context, id int32) (*domain.Reservation, error) {
	return s.repos.Reservations.GetByID(ctx, id)
}

func (s *reservationService) ConfirmReservation(ctx context.Context, id int32) (*domain.Reservation, error) {
	return s.mutate(ctx, "ConfirmReservation", id, func(res *domain.Reservation) error {
		return res.Confirm(s.now().UTC())
	})
}

func (s *reservationService) CancelReservation(ctx context.Context, id int32, reason string) (*domain.Reservation, error) {
	return s.mutate(ctx, "CancelReservation", id, func(res *domain.Reservation) error {
		return res.Cancel(reason, s.now().UTC())
	})
}

// mutate locks the reservation, applies fn and saves the result.
func (s *reservationService) mutate(ctx context.Context, method string, id int32, fn func(res *domain.Reservation) error) (*domain.Reservation, error) {
	method = "reservationService." + method
	logger.EnterMethod(method, "reservationID", id)

	var res *domain.Reservation
	var from domain.ReservationStatus
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if res, err = repos.Reservations.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		from = res.Status
		if err := fn(res); err != nil {
			return err
		}
		return repos.Reservations.Update(ctx, res)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "reservationID", id)
		return nil, err
	}

	logger.Info("Reservation transitioned", "reservationID", id, "from", from, "to", res.Status)
	logger.ExitMethod(method, "reservationID", id, "status", res.Status)
	return res, nil
}

func (s *reservationService) ListReadyForTitleTransfer(ctx context.Context) ([]domain.Reservation, error) {
	return s.repos.Reservations.ListReadyForTitleTransfer(ctx)
}
