package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"reservation-settlement-backend/internal/domain"
	"reservation-settlement-backend/internal/repository"
)

// MockReservationRepo
type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	args := m.Called(ctx, res)
	if res.ID == 0 {
		res.ID = 11
	}
	return args.Error(0)
}
func (m *MockReservationRepo) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) Update(ctx context.Context, res *domain.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}
func (m *MockReservationRepo) ListReadyForTitleTransfer(ctx context.Context) ([]domain.Reservation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

// MockNegotiationRepo
type MockNegotiationRepo struct {
	mock.Mock
}

func (m *MockNegotiationRepo) Create(ctx context.Context, n *domain.NegotiationApproval) error {
	args := m.Called(ctx, n)
	if n.ID == 0 {
		n.ID = 21
	}
	return args.Error(0)
}
func (m *MockNegotiationRepo) GetByID(ctx context.Context, id int32) (*domain.NegotiationApproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NegotiationApproval), args.Error(1)
}
func (m *MockNegotiationRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.NegotiationApproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NegotiationApproval), args.Error(1)
}
func (m *MockNegotiationRepo) GetPendingByReservation(ctx context.Context, reservationID int32) (*domain.NegotiationApproval, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NegotiationApproval), args.Error(1)
}
func (m *MockNegotiationRepo) Update(ctx context.Context, n *domain.NegotiationApproval) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNegotiationRepo) ListByReservation(ctx context.Context, reservationID int32) ([]domain.NegotiationApproval, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).([]domain.NegotiationApproval), args.Error(1)
}
func (m *MockNegotiationRepo) ListPending(ctx context.Context) ([]domain.NegotiationApproval, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.NegotiationApproval), args.Error(1)
}
func (m *MockNegotiationRepo) ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]int32, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]int32), args.Error(1)
}

// MockCommissionRepo
type MockCommissionRepo struct {
	mock.Mock
}

func (m *MockCommissionRepo) Create(ctx context.Context, c *domain.Commission) error {
	args := m.Called(ctx, c)
	if c.ID == 0 {
		c.ID = 31
	}
	return args.Error(0)
}
func (m *MockCommissionRepo) GetByID(ctx context.Context, id int32) (*domain.Commission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commission), args.Error(1)
}
func (m *MockCommissionRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Commission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commission), args.Error(1)
}
func (m *MockCommissionRepo) GetByReservation(ctx context.Context, reservationID int32) (*domain.Commission, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commission), args.Error(1)
}
func (m *MockCommissionRepo) Update(ctx context.Context, c *domain.Commission) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockDistributionRepo
type MockDistributionRepo struct {
	mock.Mock
	nextID int32
}

func (m *MockDistributionRepo) Create(ctx context.Context, d *domain.CommissionDistribution) error {
	args := m.Called(ctx, d)
	m.nextID++
	d.ID = 40 + m.nextID
	return args.Error(0)
}
func (m *MockDistributionRepo) GetByID(ctx context.Context, id int32) (*domain.CommissionDistribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionDistribution), args.Error(1)
}
func (m *MockDistributionRepo) ListByCommission(ctx context.Context, commissionID int32) ([]domain.CommissionDistribution, error) {
	args := m.Called(ctx, commissionID)
	return args.Get(0).([]domain.CommissionDistribution), args.Error(1)
}
func (m *MockDistributionRepo) Update(ctx context.Context, d *domain.CommissionDistribution) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *MockDistributionRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockDistributionRepo) ListPaidSince(ctx context.Context, since time.Time) ([]domain.CommissionDistribution, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]domain.CommissionDistribution), args.Error(1)
}

// MockFinancingRepo
type MockFinancingRepo struct {
	mock.Mock
}

func (m *MockFinancingRepo) Create(ctx context.Context, t *domain.CreditFinancingTracker) error {
	args := m.Called(ctx, t)
	if t.ID == 0 {
		t.ID = 51
	}
	return args.Error(0)
}
func (m *MockFinancingRepo) GetByID(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditFinancingTracker), args.Error(1)
}
func (m *MockFinancingRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.CreditFinancingTracker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditFinancingTracker), args.Error(1)
}
func (m *MockFinancingRepo) GetByReservation(ctx context.Context, reservationID int32) (*domain.CreditFinancingTracker, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditFinancingTracker), args.Error(1)
}
func (m *MockFinancingRepo) Update(ctx context.Context, t *domain.CreditFinancingTracker) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *MockFinancingRepo) ListOverdueIDs(ctx context.Context, now time.Time) ([]int32, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]int32), args.Error(1)
}

type mocks struct {
	reservations  *MockReservationRepo
	negotiations  *MockNegotiationRepo
	commissions   *MockCommissionRepo
	distributions *MockDistributionRepo
	financing     *MockFinancingRepo
	repos         *repository.Repositories
	tx            *stubTx
}

func newMocks() *mocks {
	m := &mocks{
		reservations:  new(MockReservationRepo),
		negotiations:  new(MockNegotiationRepo),
		commissions:   new(MockCommissionRepo),
		distributions: new(MockDistributionRepo),
		financing:     new(MockFinancingRepo),
	}
	m.repos = &repository.Repositories{
		Reservations:  m.reservations,
		Negotiations:  m.negotiations,
		Commissions:   m.commissions,
		Distributions: m.distributions,
		Financing:     m.financing,
	}
	m.tx = &stubTx{repos: m.repos}
	return m
}

// stubTx runs fn against the mock repositories and counts transactions.
type stubTx struct {
	repos *repository.Repositories
	calls int
	err   error
}

func (s *stubTx) InTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	s.calls++
	if err := fn(s.repos); err != nil {
		return err
	}
	return s.err
}

// fixedClock returns a Clock stuck at *at, which tests may move forward.
func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}
