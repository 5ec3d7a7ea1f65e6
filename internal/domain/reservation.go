package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reservation-settlement-backend/internal/utils"
)

type ReservationStatus string

const (
	ReservationStatusUnderNegotiation ReservationStatus = "under_negotiation"
	ReservationStatusConfirmed        ReservationStatus = "confirmed"
	ReservationStatusCancelled        ReservationStatus = "cancelled"
)

type ReservationType string

const (
	ReservationTypeConfirmed   ReservationType = "confirmed_reservation"
	ReservationTypeNegotiation ReservationType = "negotiation"
)

type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodBankFinancing PaymentMethod = "bank_financing"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodBankFinancing:
		return true
	}
	return false
}

// Reservation is a client's claim on one property unit. Rows are never deleted.
type Reservation struct {
	ID                    int32             `json:"id"`
	UnitID                int32             `json:"unit_id"`
	CreatedBy             int32             `json:"created_by"`
	ClientName            string            `json:"client_name"`
	ClientMobile          string            `json:"client_mobile"`
	ClientNationality     string            `json:"client_nationality"`
	ClientIBAN            string            `json:"client_iban"`
	PaymentMethod         PaymentMethod     `json:"payment_method"`
	DownPaymentAmount     decimal.Decimal   `json:"down_payment_amount"`
	DownPaymentRefundable bool              `json:"down_payment_refundable"`
	AgreedPrice           decimal.Decimal   `json:"agreed_price"`
	Status                ReservationStatus `json:"status"`
	Type                  ReservationType   `json:"reservation_type"`
	ConfirmedAt           *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt           *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason    string            `json:"cancellation_reason"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// NewReservation validates the booking and picks the initial status from the
// reservation type: negotiated deals start under negotiation, direct bookings
// start confirmed.
func NewReservation(r Reservation, now time.Time) (*Reservation, error) {
	if r.UnitID <= 0 {
		return nil, ValidationError("unit is required")
	}
	if strings.TrimSpace(r.ClientName) == "" {
		return nil, ValidationError("client name is required")
	}
	if !r.PaymentMethod.Valid() {
		return nil, ValidationError("unknown payment method: " + string(r.PaymentMethod))
	}
	if !utils.IsCentAligned(r.DownPaymentAmount) || !utils.IsCentAligned(r.AgreedPrice) {
		return nil, ValidationError("amounts must have at most two decimal places")
	}
	if r.DownPaymentAmount.IsNegative() {
		return nil, ValidationError("down payment cannot be negative")
	}
	if !r.AgreedPrice.IsPositive() {
		return nil, ValidationError("agreed price must be positive")
	}

	res := r
	res.ID = 0
	res.ConfirmedAt = nil
	res.CancelledAt = nil
	res.CancellationReason = ""
	res.CreatedAt = now
	res.UpdatedAt = now

	switch r.Type {
	case ReservationTypeNegotiation:
		res.Status = ReservationStatusUnderNegotiation
	case ReservationTypeConfirmed:
		res.Status = ReservationStatusConfirmed
		res.ConfirmedAt = &now
	default:
		return nil, ValidationError("unknown reservation type: " + string(r.Type))
	}
	return &res, nil
}

func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusConfirmed || r.Status == ReservationStatusCancelled
}

func (r *Reservation) UsesBankFinancing() bool {
	return r.PaymentMethod == PaymentMethodBankFinancing
}

// Confirm moves a negotiated reservation to confirmed.
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != ReservationStatusUnderNegotiation {
		return transitionError(ErrInvalidTransition, "reservation", r.ID,
			string(r.Status), string(ReservationStatusConfirmed), "reservation is terminal")
	}
	r.Status = ReservationStatusConfirmed
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel withdraws a reservation that is still under negotiation. Cancelling a
// confirmed sale is a separate guarded process and is refused here.
func (r *Reservation) Cancel(reason string, now time.Time) error {
	if r.Status != ReservationStatusUnderNegotiation {
		return transitionError(ErrInvalidTransition, "reservation", r.ID,
			string(r.Status), string(ReservationStatusCancelled), "reservation is terminal")
	}
	r.Status = ReservationStatusCancelled
	r.CancelledAt = &now
	r.CancellationReason = strings.TrimSpace(reason)
	r.UpdatedAt = now
	return nil
}

// ApplyPrice records a renegotiated price while the deal is still open.
func (r *Reservation) ApplyPrice(price decimal.Decimal, now time.Time) error {
	if r.Status != ReservationStatusUnderNegotiation {
		return transitionError(ErrInvalidTransition, "reservation", r.ID,
			string(r.Status), string(r.Status), "price can only change under negotiation")
	}
	if !price.IsPositive() || !utils.IsCentAligned(price) {
		return ValidationError("agreed price must be positive with at most two decimal places")
	}
	r.AgreedPrice = price
	r.UpdatedAt = now
	return nil
}
