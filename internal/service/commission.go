package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"
)

type commissionService struct {
	tx    repository.TxRunner
	repos *repository.Repositories
	now   Clock
}

func NewCommissionService(tx repository.TxRunner, repos *repository.Repositories, clock Clock) CommissionService {
	return &commissionService{tx: tx, repos: repos, now: clockOrDefault(clock)}
}

func (s *commissionService) CreateCommission(ctx context.Context, reservationID int32, finalSellingPrice, percentage decimal.Decimal, source domain.CommissionSource) (*domain.Commission, error) {
	logger.EnterMethod("commissionService.CreateCommission", "reservationID", reservationID)

	var c *domain.Commission
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		res, err := repos.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		existing, err := repos.Commissions.GetByReservation(ctx, reservationID)
		switch {
		case err == nil:
			return fmt.Errorf("reservation %d already has commission %d: %w", reservationID, existing.ID, domain.ErrDuplicateCommission)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if c, err = domain.NewCommission(res, finalSellingPrice, percentage, source, s.now().UTC()); err != nil {
			return err
		}
		return repos.Commissions.Create(ctx, c)
	})
	if err != nil {
		logger.ExitMethodWithError("commissionService.CreateCommission", err, "reservationID", reservationID)
		return nil, err
	}

	logger.ExitMethod("commissionService.CreateCommission", "commissionID", c.ID, "netAmount", c.NetAmount)
	return c, nil
}

// UpdateExpenses changes the deductions of a pending commission and refreshes
// the amounts of its pending distributions.
func (s *commissionService) UpdateExpenses(ctx context.Context, id int32, marketingExpenses, bankFees decimal.Decimal) (*domain.Commission, error) {
	return s.mutate(ctx, "UpdateExpenses", id, func(repos *repository.Repositories, c *domain.Commission, now time.Time) error {
		if err := c.UpdateExpenses(marketingExpenses, bankFees, now); err != nil {
			return err
		}
		dists, err := repos.Distributions.ListByCommission(ctx, c.ID)
		if err != nil {
			return err
		}
		for i := range dists {
			d := &dists[i]
			if d.Status != domain.DistributionStatusPending {
				continue
			}
			d.Recompute(c)
			d.UpdatedAt = now
			if err := repos.Distributions.Update(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *commissionService) ApproveCommission(ctx context.Context, id int32) (*domain.Commission, error) {
	return s.mutate(ctx, "ApproveCommission", id, func(_ *repository.Repositories, c *domain.Commission, now time.Time) error {
		return c.Approve(now)
	})
}

func (s *commissionService) MarkCommissionPaid(ctx context.Context, id int32) (*domain.Commission, error) {
	return s.mutate(ctx, "MarkCommissionPaid", id, func(_ *repository.Repositories, c *domain.Commission, now time.Time) error {
		return c.MarkPaid(now)
	})
}

func (s *commissionService) mutate(ctx context.Context, method string, id int32, fn func(repos *repository.Repositories, c *domain.Commission, now time.Time) error) (*domain.Commission, error) {
	method = "commissionService." + method
	logger.EnterMethod(method, "commissionID", id)

	var c *domain.Commission
	var from domain.CommissionStatus
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if c, err = repos.Commissions.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		from = c.Status
		if err := fn(repos, c, s.now().UTC()); err != nil {
			return err
		}
		return repos.Commissions.Update(ctx, c)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "commissionID", id)
		return nil, err
	}

	logger.Info("Commission updated", "commissionID", id, "from", from, "to", c.Status, "net", c.NetAmount)
	logger.ExitMethod(method, "commissionID", id, "status", c.Status)
	return c, nil
}

func (s *commissionService) GetCommission(ctx context.Context, id int32) (*domain.Commission, error) {
	return s.repos.Commissions.GetByID(ctx, id)
}

func (s *commissionService) GetCommissionByReservation(ctx context.Context, reservationID int32) (*domain.Commission, error) {
	return s.repos.Commissions.GetByReservation(ctx, reservationID)
}

func (s *commissionService) GetCommissionSummary(ctx context.Context, id int32) (*domain.CommissionSummary, error) {
	c, err := s.repos.Commissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dists, err := s.repos.Distributions.ListByCommission(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(c, dists)
	return &summary, nil
}

func (s *commissionService) AddDistribution(ctx context.Context, commissionID int32, in domain.DistributionInput) (*domain.CommissionDistribution, error) {
	created, err := s.distribute(ctx, "AddDistribution", commissionID, []domain.DistributionInput{in}, nil)
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

func (s *commissionService) DistributeLeadGeneration(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error) {
	return s.distribute(ctx, "DistributeLeadGeneration", commissionID, entries, fixedType(domain.DistributionTypeLeadGeneration))
}

func (s *commissionService) DistributePersuasion(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error) {
	return s.distribute(ctx, "DistributePersuasion", commissionID, entries, fixedType(domain.DistributionTypePersuasion))
}

func (s *commissionService) DistributeClosing(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error) {
	return s.distribute(ctx, "DistributeClosing", commissionID, entries, fixedType(domain.DistributionTypeClosing))
}

// DistributeManagement requires every entry to carry one of the management types.
func (s *commissionService) DistributeManagement(ctx context.Context, commissionID int32, entries []domain.DistributionInput) ([]domain.CommissionDistribution, error) {
	return s.distribute(ctx, "DistributeManagement", commissionID, entries, func(in *domain.DistributionInput) error {
		if !in.Type.IsManagement() {
			return domain.ValidationError("management distribution type must be team_leader, sales_manager or project_manager, got " + string(in.Type))
		}
		return nil
	})
}

func fixedType(t domain.DistributionType) func(in *domain.DistributionInput) error {
	return func(in *domain.DistributionInput) error {
		in.Type = t
		return nil
	}
}

// distribute creates all entries in one transaction under the commission row
// lock. Either every entry is stored or none is.
func (s *commissionService) distribute(ctx context.Context, method string, commissionID int32, entries []domain.DistributionInput, prepare func(in *domain.DistributionInput) error) ([]domain.CommissionDistribution, error) {
	method = "commissionService." + method
	logger.EnterMethod(method, "commissionID", commissionID, "entries", len(entries))

	if len(entries) == 0 {
		err := domain.ValidationError("at least one distribution is required")
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	var created []domain.CommissionDistribution
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		c, err := repos.Commissions.GetByIDForUpdate(ctx, commissionID)
		if err != nil {
			return err
		}
		siblings, err := repos.Distributions.ListByCommission(ctx, commissionID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		for i, in := range entries {
			if prepare != nil {
				if err := prepare(&in); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
			}
			d, err := c.NewDistribution(in, siblings, now)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			if err := repos.Distributions.Create(ctx, d); err != nil {
				return err
			}
			siblings = append(siblings, *d)
			created = append(created, *d)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "commissionID", commissionID)
		return nil, err
	}

	logger.ExitMethod(method, "commissionID", commissionID, "created", len(created))
	return created, nil
}

func (s *commissionService) ApproveDistribution(ctx context.Context, id, approverID int32) (*domain.CommissionDistribution, error) {
	return s.mutateDistribution(ctx, "ApproveDistribution", id, func(_ *repository.Repositories, _ *domain.Commission, d *domain.CommissionDistribution, now time.Time) error {
		return d.Approve(approverID, now)
	})
}

func (s *commissionService) RejectDistribution(ctx context.Context, id, approverID int32, notes string) (*domain.CommissionDistribution, error) {
	return s.mutateDistribution(ctx, "RejectDistribution", id, func(_ *repository.Repositories, _ *domain.Commission, d *domain.CommissionDistribution, now time.Time) error {
		return d.Reject(approverID, notes, now)
	})
}

func (s *commissionService) UpdateDistributionPercentage(ctx context.Context, id int32, percentage decimal.Decimal) (*domain.CommissionDistribution, error) {
	return s.mutateDistribution(ctx, "UpdateDistributionPercentage", id, func(repos *repository.Repositories, c *domain.Commission, d *domain.CommissionDistribution, now time.Time) error {
		siblings, err := repos.Distributions.ListByCommission(ctx, c.ID)
		if err != nil {
			return err
		}
		return d.UpdatePercentage(c, percentage, siblings, now)
	})
}

func (s *commissionService) MarkDistributionPaid(ctx context.Context, id int32) (*domain.CommissionDistribution, error) {
	return s.mutateDistribution(ctx, "MarkDistributionPaid", id, func(_ *repository.Repositories, _ *domain.Commission, d *domain.CommissionDistribution, now time.Time) error {
		return d.MarkPaid(now)
	})
}

// lockDistribution locks the parent commission and then re-reads the
// distribution, so sibling checks see a stable set.
func lockDistribution(ctx context.Context, repos *repository.Repositories, id int32) (*domain.Commission, *domain.CommissionDistribution, error) {
	d, err := repos.Distributions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := repos.Commissions.GetByIDForUpdate(ctx, d.CommissionID)
	if err != nil {
		return nil, nil, err
	}
	if d, err = repos.Distributions.GetByID(ctx, id); err != nil {
		return nil, nil, err
	}
	return c, d, nil
}

func (s *commissionService) mutateDistribution(ctx context.Context, method string, id int32, fn func(repos *repository.Repositories, c *domain.Commission, d *domain.CommissionDistribution, now time.Time) error) (*domain.CommissionDistribution, error) {
	method = "commissionService." + method
	logger.EnterMethod(method, "distributionID", id)

	var d *domain.CommissionDistribution
	var from domain.DistributionStatus
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		c, locked, err := lockDistribution(ctx, repos, id)
		if err != nil {
			return err
		}
		d = locked
		from = d.Status
		if err := fn(repos, c, d, s.now().UTC()); err != nil {
			return err
		}
		return repos.Distributions.Update(ctx, d)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "distributionID", id)
		return nil, err
	}

	logger.Info("Distribution updated", "distributionID", id, "commissionID", d.CommissionID, "from", from, "to", d.Status)
	logger.ExitMethod(method, "distributionID", id, "status", d.Status, "amount", d.Amount)
	return d, nil
}

func (s *commissionService) DeleteDistribution(ctx context.Context, id int32) error {
	logger.EnterMethod("commissionService.DeleteDistribution", "distributionID", id)

	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		_, d, err := lockDistribution(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := d.CanDelete(); err != nil {
			return err
		}
		return repos.Distributions.Delete(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("commissionService.DeleteDistribution", err, "distributionID", id)
		return err
	}

	logger.ExitMethod("commissionService.DeleteDistribution", "distributionID", id)
	return nil
}

func (s *commissionService) ListDistributions(ctx context.Context, commissionID int32) ([]domain.CommissionDistribution, error) {
	return s.repos.Distributions.ListByCommission(ctx, commissionID)
}

// ListPaidDistributions feeds payroll: every share paid at or after since.
func (s *commissionService) ListPaidDistributions(ctx context.Context, since time.Time) ([]domain.CommissionDistribution, error) {
	return s.repos.Distributions.ListPaidSince(ctx, since)
}
