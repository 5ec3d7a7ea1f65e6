package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reservation-settlement-backend/internal/utils"
)

type NegotiationStatus string

const (
	NegotiationStatusPending  NegotiationStatus = "pending"
	NegotiationStatusApproved NegotiationStatus = "approved"
	NegotiationStatusRejected NegotiationStatus = "rejected"
	NegotiationStatusExpired  NegotiationStatus = "expired"
)

// DefaultNegotiationWindow is how long a manager has to answer a price change request.
const DefaultNegotiationWindow = 48 * time.Hour

// NegotiationApproval is a time-boxed request to change a reservation's price.
// DeadlineAt is fixed when the request is opened.
type NegotiationApproval struct {
	ID            int32             `json:"id"`
	ReservationID int32             `json:"reservation_id"`
	RequestedBy   int32             `json:"requested_by"`
	ApprovedBy    *int32            `json:"approved_by,omitempty"`
	Status        NegotiationStatus `json:"status"`
	Reason        string            `json:"reason"`
	OriginalPrice decimal.Decimal   `json:"original_price"`
	ProposedPrice decimal.Decimal   `json:"proposed_price"`
	ManagerNotes  string            `json:"manager_notes"`
	DeadlineAt    time.Time         `json:"deadline_at"`
	RespondedAt   *time.Time        `json:"responded_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// OpenNegotiation creates a pending request against a reservation that is still
// being negotiated. The caller must make sure no other pending request exists.
func OpenNegotiation(res *Reservation, requestedBy int32, reason string, proposedPrice decimal.Decimal, window time.Duration, now time.Time) (*NegotiationApproval, error) {
	if res.Status != ReservationStatusUnderNegotiation {
		return nil, transitionError(ErrInvalidTransition, "reservation", res.ID,
			string(res.Status), string(NegotiationStatusPending), "negotiation requires a reservation under negotiation")
	}
	if requestedBy <= 0 {
		return nil, ValidationError("requester is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ValidationError("reason is required")
	}
	if !proposedPrice.IsPositive() || !utils.IsCentAligned(proposedPrice) {
		return nil, ValidationError("proposed price must be positive with at most two decimal places")
	}
	if window <= 0 {
		window = DefaultNegotiationWindow
	}

	return &NegotiationApproval{
		ReservationID: res.ID,
		RequestedBy:   requestedBy,
		Status:        NegotiationStatusPending,
		Reason:        strings.TrimSpace(reason),
		OriginalPrice: res.AgreedPrice,
		ProposedPrice: proposedPrice,
		DeadlineAt:    now.Add(window),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (n *NegotiationApproval) IsPending() bool {
	return n.Status == NegotiationStatusPending
}

// IsPastDeadline reports whether the response window has closed.
func (n *NegotiationApproval) IsPastDeadline(now time.Time) bool {
	return now.After(n.DeadlineAt)
}

func (n *NegotiationApproval) resolve(to NegotiationStatus, by int32, notes string, now time.Time) error {
	if n.Status != NegotiationStatusPending {
		return transitionError(ErrInvalidTransition, "negotiation approval", n.ID,
			string(n.Status), string(to), "request already resolved")
	}
	if by <= 0 {
		return ValidationError("approver is required")
	}
	n.Status = to
	n.ApprovedBy = &by
	n.ManagerNotes = strings.TrimSpace(notes)
	n.RespondedAt = &now
	n.UpdatedAt = now
	return nil
}

// Approve accepts the proposed price. Applying the price to the reservation is a
// separate step.
func (n *NegotiationApproval) Approve(approvedBy int32, notes string, now time.Time) error {
	return n.resolve(NegotiationStatusApproved, approvedBy, notes, now)
}

func (n *NegotiationApproval) Reject(approvedBy int32, reason string, now time.Time) error {
	return n.resolve(NegotiationStatusRejected, approvedBy, reason, now)
}

// Expire closes a pending request whose deadline has passed. It reports whether
// the status changed; on an already resolved request it does nothing.
func (n *NegotiationApproval) Expire(now time.Time) (bool, error) {
	if n.Status != NegotiationStatusPending {
		return false, nil
	}
	if !n.IsPastDeadline(now) {
		return false, transitionError(ErrInvalidTransition, "negotiation approval", n.ID,
			string(n.Status), string(NegotiationStatusExpired),
			"deadline "+n.DeadlineAt.UTC().Format(time.RFC3339)+" not reached")
	}
	n.Status = NegotiationStatusExpired
	n.RespondedAt = &now
	n.UpdatedAt = now
	return true, nil
}
