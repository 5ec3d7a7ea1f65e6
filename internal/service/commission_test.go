package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/service"
)

// millionSale is the commission on a 1,000,000 sale at 2.5%: total 25,000,
// VAT 3,750, net 21,250.
func millionSale(t *testing.T) *domain.Commission {
	t.Helper()
	c, err := domain.NewCommission(reservation(domain.ReservationStatusConfirmed), dec("1000000"), dec("2.5"), domain.CommissionSourceOwner, t0)
	require.NoError(t, err)
	c.ID = 31
	return c
}

func share(id int32, typ domain.DistributionType, pct string, status domain.DistributionStatus) domain.CommissionDistribution {
	recipient := int32(9)
	return domain.CommissionDistribution{
		ID: id, CommissionID: 31, RecipientID: &recipient, Type: typ,
		Percentage: dec(pct), Amount: dec("0"), Status: status, CreatedAt: t0, UpdatedAt: t0,
	}
}

func recipient(id int32) *int32 { return &id }

func TestCommissionService_CreateCommission(t *testing.T) {
	ctx := context.Background()
	now := t0

	t.Run("Success", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.reservations.On("GetByIDForUpdate", ctx, int32(11)).Return(reservation(domain.ReservationStatusConfirmed), nil)
		m.commissions.On("GetByReservation", ctx, int32(11)).Return(nil, domain.NotFoundError("commission for reservation", 11))
		m.commissions.On("Create", ctx, mock.AnythingOfType("*domain.Commission")).Return(nil)

		c, err := svc.CreateCommission(ctx, 11, dec("1000000"), dec("2.5"), domain.CommissionSourceOwner)
		require.NoError(t, err)
		assert.True(t, c.TotalAmount.Equal(dec("25000")))
		assert.True(t, c.VAT.Equal(dec("3750")))
		assert.True(t, c.NetAmount.Equal(dec("21250")))
		assert.Equal(t, domain.CommissionStatusPending, c.Status)
	})

	t.Run("Duplicate", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.reservations.On("GetByIDForUpdate", ctx, int32(11)).Return(reservation(domain.ReservationStatusConfirmed), nil)
		m.commissions.On("GetByReservation", ctx, int32(11)).Return(millionSale(t), nil)

		_, err := svc.CreateCommission(ctx, 11, dec("1000000"), dec("2.5"), domain.CommissionSourceOwner)
		assert.ErrorIs(t, err, domain.ErrDuplicateCommission)
	})

	t.Run("Reservation not confirmed", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.reservations.On("GetByIDForUpdate", ctx, int32(11)).Return(reservation(domain.ReservationStatusUnderNegotiation), nil)
		m.commissions.On("GetByReservation", ctx, int32(11)).Return(nil, domain.NotFoundError("commission for reservation", 11))

		_, err := svc.CreateCommission(ctx, 11, dec("1000000"), dec("2.5"), domain.CommissionSourceOwner)
		assert.ErrorIs(t, err, domain.ErrReservationNotConfirmed)
		m.commissions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCommissionService_UpdateExpenses(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)

	t.Run("Pending shares follow the new net amount", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		c := millionSale(t)
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(c, nil)
		m.commissions.On("Update", ctx, c).Return(nil)
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{
			share(41, domain.DistributionTypeLeadGeneration, "30", domain.DistributionStatusPending),
			share(42, domain.DistributionTypeClosing, "20", domain.DistributionStatusApproved),
		}, nil)
		m.distributions.On("Update", ctx, mock.MatchedBy(func(d *domain.CommissionDistribution) bool {
			return d.ID == 41 && d.Amount.Equal(dec("5775"))
		})).Return(nil).Once()

		got, err := svc.UpdateExpenses(ctx, 31, dec("1000"), dec("1000"))
		require.NoError(t, err)
		assert.True(t, got.NetAmount.Equal(dec("19250")))
		m.distributions.AssertExpectations(t)
		m.distributions.AssertNumberOfCalls(t, "Update", 1)
	})

	t.Run("Approved commission is locked", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		c := millionSale(t)
		c.Status = domain.CommissionStatusApproved
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(c, nil)

		_, err := svc.UpdateExpenses(ctx, 31, dec("1000"), dec("0"))
		assert.ErrorIs(t, err, domain.ErrCommissionLocked)
		m.commissions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestCommissionService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)
	m := newMocks()
	svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
	c := millionSale(t)
	m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(c, nil)
	m.commissions.On("Update", ctx, c).Return(nil)

	_, err := svc.MarkCommissionPaid(ctx, 31)
	assert.ErrorIs(t, err, domain.ErrNotApproved)

	got, err := svc.ApproveCommission(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStatusApproved, got.Status)

	got, err = svc.MarkCommissionPaid(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStatusPaid, got.Status)

	_, err = svc.ApproveCommission(ctx, 31)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	m.commissions.AssertNumberOfCalls(t, "Update", 2)
}

func TestCommissionService_AddDistribution(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)

	t.Run("Thirty percent share of net", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(millionSale(t), nil)
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{}, nil)
		m.distributions.On("Create", ctx, mock.AnythingOfType("*domain.CommissionDistribution")).Return(nil)

		d, err := svc.AddDistribution(ctx, 31, domain.DistributionInput{
			Type: domain.DistributionTypeLeadGeneration, Percentage: dec("30"), RecipientID: recipient(9),
		})
		require.NoError(t, err)
		assert.True(t, d.Amount.Equal(dec("6375")), d.Amount.String())
		assert.Equal(t, domain.DistributionStatusPending, d.Status)
	})

	t.Run("Allocation above 100 percent", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(millionSale(t), nil)
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{
			share(41, domain.DistributionTypeLeadGeneration, "60", domain.DistributionStatusApproved),
			share(42, domain.DistributionTypeClosing, "30", domain.DistributionStatusPending),
			share(43, domain.DistributionTypeOther, "50", domain.DistributionStatusRejected),
		}, nil)

		_, err := svc.AddDistribution(ctx, 31, domain.DistributionInput{
			Type: domain.DistributionTypePersuasion, Percentage: dec("15"), RecipientID: recipient(9),
		})
		assert.ErrorIs(t, err, domain.ErrAllocationExceeded)
		m.distributions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCommissionService_BulkDistribution(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)

	t.Run("Type is fixed by the helper", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(millionSale(t), nil)
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{}, nil)
		m.distributions.On("Create", ctx, mock.AnythingOfType("*domain.CommissionDistribution")).Return(nil)

		created, err := svc.DistributeClosing(ctx, 31, []domain.DistributionInput{
			{Type: domain.DistributionTypeOther, Percentage: dec("10"), RecipientID: recipient(9)},
			{Percentage: dec("5"), ExternalName: "Gulf Leads", BankAccount: "SA44"},
		})
		require.NoError(t, err)
		require.Len(t, created, 2)
		for _, d := range created {
			assert.Equal(t, domain.DistributionTypeClosing, d.Type)
		}
		assert.True(t, created[1].Amount.Equal(dec("1062.5")))
		assert.NotEqual(t, created[0].ID, created[1].ID)
	})

	t.Run("Later entries see earlier ones", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(millionSale(t), nil)
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{
			share(41, domain.DistributionTypeClosing, "40", domain.DistributionStatusPending),
		}, nil)
		m.distributions.On("Create", ctx, mock.AnythingOfType("*domain.CommissionDistribution")).Return(nil)

		_, err := svc.DistributeLeadGeneration(ctx, 31, []domain.DistributionInput{
			{Percentage: dec("40"), RecipientID: recipient(9)},
			{Percentage: dec("30"), RecipientID: recipient(10)},
		})
		assert.ErrorIs(t, err, domain.ErrAllocationExceeded)
		assert.Contains(t, err.Error(), "entry 1")
	})

	t.Run("Management types only", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(millionSale(t), nil)
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{}, nil)
		m.distributions.On("Create", ctx, mock.AnythingOfType("*domain.CommissionDistribution")).Return(nil)

		created, err := svc.DistributeManagement(ctx, 31, []domain.DistributionInput{
			{Type: domain.DistributionTypeTeamLeader, Percentage: dec("5"), RecipientID: recipient(20)},
			{Type: domain.DistributionTypeSalesManager, Percentage: dec("3"), RecipientID: recipient(21)},
		})
		require.NoError(t, err)
		assert.Len(t, created, 2)

		_, err = svc.DistributeManagement(ctx, 31, []domain.DistributionInput{
			{Type: domain.DistributionTypeClosing, Percentage: dec("5"), RecipientID: recipient(20)},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Empty list", func(t *testing.T) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))

		_, err := svc.DistributePersuasion(ctx, 31, nil)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 0, m.tx.calls)
	})
}

func TestCommissionService_DistributionLifecycle(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)

	setup := func(t *testing.T, d domain.CommissionDistribution) (*mocks, service.CommissionService) {
		m := newMocks()
		svc := service.NewCommissionService(m.tx, m.repos, fixedClock(&now))
		m.distributions.On("GetByID", ctx, d.ID).Return(&d, nil)
		m.commissions.On("GetByIDForUpdate", ctx, int32(31)).Return(millionSale(t), nil)
		return m, svc
	}

	t.Run("Approve then pay", func(t *testing.T) {
		m, svc := setup(t, share(41, domain.DistributionTypeClosing, "30", domain.DistributionStatusPending))
		m.distributions.On("Update", ctx, mock.AnythingOfType("*domain.CommissionDistribution")).Return(nil)

		d, err := svc.ApproveDistribution(ctx, 41, 5)
		require.NoError(t, err)
		assert.Equal(t, domain.DistributionStatusApproved, d.Status)
		assert.Equal(t, int32(5), *d.ApprovedBy)
		m.commissions.AssertCalled(t, "GetByIDForUpdate", ctx, int32(31))
	})

	t.Run("Pay before approve", func(t *testing.T) {
		_, svc := setup(t, share(41, domain.DistributionTypeClosing, "30", domain.DistributionStatusPending))

		_, err := svc.MarkDistributionPaid(ctx, 41)
		assert.ErrorIs(t, err, domain.ErrNotApproved)
	})

	t.Run("Rejected is terminal", func(t *testing.T) {
		_, svc := setup(t, share(41, domain.DistributionTypeClosing, "30", domain.DistributionStatusRejected))

		_, err := svc.ApproveDistribution(ctx, 41, 5)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Percentage update recomputes amount", func(t *testing.T) {
		m, svc := setup(t, share(41, domain.DistributionTypeClosing, "30", domain.DistributionStatusPending))
		m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{
			share(41, domain.DistributionTypeClosing, "30", domain.DistributionStatusPending),
			share(42, domain.DistributionTypeLeadGeneration, "50", domain.DistributionStatusApproved),
		}, nil)
		m.distributions.On("Update", ctx, mock.AnythingOfType("*domain.CommissionDistribution")).Return(nil)

		d, err := svc.UpdateDistributionPercentage(ctx, 41, dec("50"))
		require.NoError(t, err)
		assert.True(t, d.Amount.Equal(dec("10625")))

		_, err = svc.UpdateDistributionPercentage(ctx, 41, dec("50.01"))
		assert.ErrorIs(t, err, domain.ErrAllocationExceeded)
	})

	t.Run("Delete pending only", func(t *testing.T) {
		m, svc := setup(t, share(41, domain.DistributionTypeClosing, "30", domain.DistributionStatusPending))
		m.distributions.On("Delete", ctx, int32(41)).Return(nil)
		assert.NoError(t, svc.DeleteDistribution(ctx, 41))

		m, svc = setup(t, share(42, domain.DistributionTypeClosing, "30", domain.DistributionStatusApproved))
		assert.ErrorIs(t, svc.DeleteDistribution(ctx, 42), domain.ErrInvalidTransition)
		m.distributions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestCommissionService_GetCommissionSummary(t *testing.T) {
	ctx := context.Background()
	m := newMocks()
	svc := service.NewCommissionService(m.tx, m.repos, nil)
	c := millionSale(t)

	paid := share(41, domain.DistributionTypeLeadGeneration, "30", domain.DistributionStatusPaid)
	paid.Amount = dec("6375")
	open := share(42, domain.DistributionTypeClosing, "20", domain.DistributionStatusPending)
	open.Amount = dec("4250")
	rejected := share(43, domain.DistributionTypeOther, "40", domain.DistributionStatusRejected)
	rejected.Amount = dec("8500")

	m.commissions.On("GetByID", ctx, int32(31)).Return(c, nil)
	m.distributions.On("ListByCommission", ctx, int32(31)).Return([]domain.CommissionDistribution{paid, open, rejected}, nil)

	summary, err := svc.GetCommissionSummary(ctx, 31)
	require.NoError(t, err)
	assert.True(t, summary.AllocatedPercentage.Equal(dec("50")))
	assert.True(t, summary.AllocatedAmount.Equal(dec("10625")))
	assert.True(t, summary.PaidAmount.Equal(dec("6375")))
	assert.True(t, summary.UnallocatedAmount.Equal(dec("10625")))
	assert.Equal(t, 2, summary.DistributionCount)
}
