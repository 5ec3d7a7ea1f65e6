package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reservation-settlement-backend/internal/utils"
)

// VATRate is the flat VAT percentage deducted from every commission.
var VATRate = decimal.NewFromInt(15)

type CommissionSource string

const (
	CommissionSourceOwner CommissionSource = "owner"
	CommissionSourceBuyer CommissionSource = "buyer"
)

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
	CommissionStatusPaid     CommissionStatus = "paid"
)

// Commission is the fee owed on one confirmed reservation.
//
//	TotalAmount = FinalSellingPrice * CommissionPercentage / 100
//	VAT         = TotalAmount * 15 / 100
//	NetAmount   = TotalAmount - VAT - MarketingExpenses - BankFees
type Commission struct {
	ID                   int32            `json:"id"`
	UnitID               int32            `json:"unit_id"`
	ReservationID        int32            `json:"reservation_id"`
	FinalSellingPrice    decimal.Decimal  `json:"final_selling_price"`
	CommissionPercentage decimal.Decimal  `json:"commission_percentage"`
	TotalAmount          decimal.Decimal  `json:"total_amount"`
	VAT                  decimal.Decimal  `json:"vat"`
	MarketingExpenses    decimal.Decimal  `json:"marketing_expenses"`
	BankFees             decimal.Decimal  `json:"bank_fees"`
	NetAmount            decimal.Decimal  `json:"net_amount"`
	Source               CommissionSource `json:"commission_source"`
	Status               CommissionStatus `json:"status"`
	ApprovedAt           *time.Time       `json:"approved_at,omitempty"`
	PaidAt               *time.Time       `json:"paid_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// NewCommission computes a pending commission for a confirmed reservation.
func NewCommission(res *Reservation, finalSellingPrice, percentage decimal.Decimal, source CommissionSource, now time.Time) (*Commission, error) {
	if res.Status != ReservationStatusConfirmed {
		return nil, transitionError(ErrReservationNotConfirmed, "reservation", res.ID,
			string(res.Status), string(ReservationStatusConfirmed), "commission requires a confirmed reservation")
	}
	if !finalSellingPrice.IsPositive() || !utils.IsCentAligned(finalSellingPrice) {
		return nil, ValidationError("final selling price must be positive with at most two decimal places")
	}
	if !utils.ValidPercentage(percentage) {
		return nil, ValidationError("commission percentage must be in (0, 100] with at most two decimal places")
	}
	if source != CommissionSourceOwner && source != CommissionSourceBuyer {
		return nil, ValidationError("unknown commission source: " + string(source))
	}

	c := &Commission{
		UnitID:               res.UnitID,
		ReservationID:        res.ID,
		FinalSellingPrice:    finalSellingPrice,
		CommissionPercentage: percentage,
		MarketingExpenses:    decimal.Zero,
		BankFees:             decimal.Zero,
		Source:               source,
		Status:               CommissionStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	c.Recalculate()
	return c, nil
}

// Recalculate derives total, VAT and net from the stored inputs. The results
// are exact; nothing is rounded.
func (c *Commission) Recalculate() {
	c.TotalAmount = utils.PercentOf(c.FinalSellingPrice, c.CommissionPercentage)
	c.VAT = utils.PercentOf(c.TotalAmount, VATRate)
	c.NetAmount = c.TotalAmount.Sub(c.VAT).Sub(c.MarketingExpenses).Sub(c.BankFees)
}

// UpdateExpenses replaces the deductible expenses while the commission is pending.
func (c *Commission) UpdateExpenses(marketing, bankFees decimal.Decimal, now time.Time) error {
	if c.Status != CommissionStatusPending {
		return transitionError(ErrCommissionLocked, "commission", c.ID,
			string(c.Status), string(c.Status), "expenses can only change while pending")
	}
	if marketing.IsNegative() || bankFees.IsNegative() {
		return ValidationError("expenses cannot be negative")
	}
	if !utils.IsCentAligned(marketing) || !utils.IsCentAligned(bankFees) {
		return ValidationError("expenses must have at most two decimal places")
	}
	available := c.TotalAmount.Sub(c.VAT)
	if marketing.Add(bankFees).GreaterThan(available) {
		return ValidationError("expenses " + marketing.Add(bankFees).String() +
			" exceed the commission after VAT " + available.String())
	}
	c.MarketingExpenses = marketing
	c.BankFees = bankFees
	c.Recalculate()
	c.UpdatedAt = now
	return nil
}

func (c *Commission) Approve(now time.Time) error {
	if c.Status != CommissionStatusPending {
		return transitionError(ErrInvalidTransition, "commission", c.ID,
			string(c.Status), string(CommissionStatusApproved), "")
	}
	c.Status = CommissionStatusApproved
	c.ApprovedAt = &now
	c.UpdatedAt = now
	return nil
}

func (c *Commission) MarkPaid(now time.Time) error {
	switch c.Status {
	case CommissionStatusApproved:
	case CommissionStatusPending:
		return transitionError(ErrNotApproved, "commission", c.ID,
			string(c.Status), string(CommissionStatusPaid), "commission must be approved first")
	default:
		return transitionError(ErrInvalidTransition, "commission", c.ID,
			string(c.Status), string(CommissionStatusPaid), "")
	}
	c.Status = CommissionStatusPaid
	c.PaidAt = &now
	c.UpdatedAt = now
	return nil
}

type DistributionType string

const (
	DistributionTypeLeadGeneration   DistributionType = "lead_generation"
	DistributionTypePersuasion       DistributionType = "persuasion"
	DistributionTypeClosing          DistributionType = "closing"
	DistributionTypeTeamLeader       DistributionType = "team_leader"
	DistributionTypeSalesManager     DistributionType = "sales_manager"
	DistributionTypeProjectManager   DistributionType = "project_manager"
	DistributionTypeExternalMarketer DistributionType = "external_marketer"
	DistributionTypeOther            DistributionType = "other"
)

func (t DistributionType) Valid() bool {
	switch t {
	case DistributionTypeLeadGeneration, DistributionTypePersuasion, DistributionTypeClosing,
		DistributionTypeTeamLeader, DistributionTypeSalesManager, DistributionTypeProjectManager,
		DistributionTypeExternalMarketer, DistributionTypeOther:
		return true
	}
	return false
}

// IsManagement reports whether t is one of the management roles.
func (t DistributionType) IsManagement() bool {
	return t == DistributionTypeTeamLeader || t == DistributionTypeSalesManager || t == DistributionTypeProjectManager
}

type DistributionStatus string

const (
	DistributionStatusPending  DistributionStatus = "pending"
	DistributionStatusApproved DistributionStatus = "approved"
	DistributionStatusRejected DistributionStatus = "rejected"
	DistributionStatusPaid     DistributionStatus = "paid"
)

// CommissionDistribution is one recipient's share of a commission's net amount.
// RecipientID is nil for parties outside the system, who are identified by
// ExternalName and BankAccount instead.
type CommissionDistribution struct {
	ID           int32              `json:"id"`
	CommissionID int32              `json:"commission_id"`
	RecipientID  *int32             `json:"recipient_id,omitempty"`
	Type         DistributionType   `json:"type"`
	ExternalName string             `json:"external_name"`
	BankAccount  string             `json:"bank_account"`
	Percentage   decimal.Decimal    `json:"percentage"`
	Amount       decimal.Decimal    `json:"amount"`
	Status       DistributionStatus `json:"status"`
	ApprovedBy   *int32             `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time         `json:"approved_at,omitempty"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	Notes        string             `json:"notes"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// DistributionInput describes one share to allocate.
type DistributionInput struct {
	Type         DistributionType
	Percentage   decimal.Decimal
	RecipientID  *int32
	ExternalName string
	BankAccount  string
	Notes        string
}

// AllocatedPercentage sums the percentages of all non-rejected distributions,
// skipping the one with id skipID.
func AllocatedPercentage(dists []CommissionDistribution, skipID int32) decimal.Decimal {
	total := decimal.Zero
	for _, d := range dists {
		if d.Status == DistributionStatusRejected || (skipID != 0 && d.ID == skipID) {
			continue
		}
		total = total.Add(d.Percentage)
	}
	return total
}

func checkAllocation(commissionID int32, allocated, requested decimal.Decimal) error {
	if allocated.Add(requested).GreaterThan(decimal.NewFromInt(100)) {
		return transitionError(ErrAllocationExceeded, "commission", commissionID,
			allocated.String()+"% allocated", allocated.Add(requested).String()+"% allocated",
			"only "+utils.Remaining(allocated).String()+"% remains")
	}
	return nil
}

// NewDistribution allocates a pending share of c. siblings are the commission's
// existing distributions and are used to keep the total at or below 100%.
func (c *Commission) NewDistribution(in DistributionInput, siblings []CommissionDistribution, now time.Time) (*CommissionDistribution, error) {
	if !in.Type.Valid() {
		return nil, ValidationError("unknown distribution type: " + string(in.Type))
	}
	if !utils.ValidPercentage(in.Percentage) {
		return nil, ValidationError("distribution percentage must be in (0, 100] with at most two decimal places")
	}
	if in.RecipientID == nil && strings.TrimSpace(in.ExternalName) == "" {
		return nil, ValidationError("recipient or external name is required")
	}
	if err := checkAllocation(c.ID, AllocatedPercentage(siblings, 0), in.Percentage); err != nil {
		return nil, err
	}

	return &CommissionDistribution{
		CommissionID: c.ID,
		RecipientID:  in.RecipientID,
		Type:         in.Type,
		ExternalName: strings.TrimSpace(in.ExternalName),
		BankAccount:  strings.TrimSpace(in.BankAccount),
		Percentage:   in.Percentage,
		Amount:       utils.PercentOf(c.NetAmount, in.Percentage),
		Status:       DistributionStatusPending,
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (d *CommissionDistribution) requirePending(to DistributionStatus) error {
	if d.Status != DistributionStatusPending {
		return transitionError(ErrInvalidTransition, "commission distribution", d.ID,
			string(d.Status), string(to), "")
	}
	return nil
}

// Recompute refreshes Amount from the parent's current net amount.
func (d *CommissionDistribution) Recompute(c *Commission) {
	d.Amount = utils.PercentOf(c.NetAmount, d.Percentage)
}

// UpdatePercentage changes a pending share and recomputes its amount.
func (d *CommissionDistribution) UpdatePercentage(c *Commission, pct decimal.Decimal, siblings []CommissionDistribution, now time.Time) error {
	if err := d.requirePending(DistributionStatusPending); err != nil {
		return err
	}
	if !utils.ValidPercentage(pct) {
		return ValidationError("distribution percentage must be in (0, 100] with at most two decimal places")
	}
	if err := checkAllocation(c.ID, AllocatedPercentage(siblings, d.ID), pct); err != nil {
		return err
	}
	d.Percentage = pct
	d.Recompute(c)
	d.UpdatedAt = now
	return nil
}

func (d *CommissionDistribution) Approve(approverID int32, now time.Time) error {
	if err := d.requirePending(DistributionStatusApproved); err != nil {
		return err
	}
	d.Status = DistributionStatusApproved
	d.ApprovedBy = &approverID
	d.ApprovedAt = &now
	d.UpdatedAt = now
	return nil
}

func (d *CommissionDistribution) Reject(approverID int32, notes string, now time.Time) error {
	if err := d.requirePending(DistributionStatusRejected); err != nil {
		return err
	}
	d.Status = DistributionStatusRejected
	d.ApprovedBy = &approverID
	if notes = strings.TrimSpace(notes); notes != "" {
		d.Notes = notes
	}
	d.UpdatedAt = now
	return nil
}

func (d *CommissionDistribution) MarkPaid(now time.Time) error {
	if d.Status != DistributionStatusApproved {
		kind := ErrInvalidTransition
		if d.Status == DistributionStatusPending {
			kind = ErrNotApproved
		}
		return transitionError(kind, "commission distribution", d.ID,
			string(d.Status), string(DistributionStatusPaid), "distribution must be approved first")
	}
	d.Status = DistributionStatusPaid
	d.PaidAt = &now
	d.UpdatedAt = now
	return nil
}

// CanDelete reports whether the share may still be removed.
func (d *CommissionDistribution) CanDelete() error {
	if d.Status != DistributionStatusPending {
		return transitionError(ErrInvalidTransition, "commission distribution", d.ID,
			string(d.Status), "deleted", "only pending distributions can be deleted")
	}
	return nil
}

// CommissionSummary aggregates a commission's distributions.
type CommissionSummary struct {
	CommissionID          int32           `json:"commission_id"`
	NetAmount             decimal.Decimal `json:"net_amount"`
	AllocatedPercentage   decimal.Decimal `json:"allocated_percentage"`
	UnallocatedPercentage decimal.Decimal `json:"unallocated_percentage"`
	AllocatedAmount       decimal.Decimal `json:"allocated_amount"`
	PaidAmount            decimal.Decimal `json:"paid_amount"`
	UnallocatedAmount     decimal.Decimal `json:"unallocated_amount"`
	DistributionCount     int             `json:"distribution_count"`
}

func Summarize(c *Commission, dists []CommissionDistribution) CommissionSummary {
	s := CommissionSummary{
		CommissionID:    c.ID,
		NetAmount:       c.NetAmount,
		AllocatedAmount: decimal.Zero,
		PaidAmount:      decimal.Zero,
	}
	for _, d := range dists {
		if d.Status == DistributionStatusRejected {
			continue
		}
		s.DistributionCount++
		s.AllocatedAmount = s.AllocatedAmount.Add(d.Amount)
		if d.Status == DistributionStatusPaid {
			s.PaidAmount = s.PaidAmount.Add(d.Amount)
		}
	}
	s.AllocatedPercentage = AllocatedPercentage(dists, 0)
	s.UnallocatedPercentage = utils.Remaining(s.AllocatedPercentage)
	s.UnallocatedAmount = c.NetAmount.Sub(s.AllocatedAmount)
	return s
}
