package domain

import (
	"fmt"
	"strings"
	"time"
)

type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusOverdue    StageStatus = "overdue"
)

type FinancingStatus string

const (
	FinancingStatusInProgress FinancingStatus = "in_progress"
	FinancingStatusCompleted  FinancingStatus = "completed"
	FinancingStatusRejected   FinancingStatus = "rejected"
	FinancingStatusCancelled  FinancingStatus = "cancelled"
)

// StageCount is the number of financing milestones.
const StageCount = 5

// StageDefinition names a milestone and the time allowed once it starts.
type StageDefinition struct {
	Number   int
	Name     string
	Duration time.Duration
}

var stageDefinitions = [StageCount]StageDefinition{
	{Number: 1, Name: "bank_contact", Duration: 48 * time.Hour},
	{Number: 2, Name: "application_submission", Duration: 5 * 24 * time.Hour},
	{Number: 3, Name: "property_appraisal", Duration: 3 * 24 * time.Hour},
	{Number: 4, Name: "contract_signing", Duration: 2 * 24 * time.Hour},
	{Number: 5, Name: "disbursement", Duration: 5 * 24 * time.Hour},
}

// StageDefinitions returns the ordered milestone list.
func StageDefinitions() []StageDefinition {
	out := make([]StageDefinition, StageCount)
	copy(out, stageDefinitions[:])
	return out
}

// StageDuration returns the deadline window of stage n (1-based).
func StageDuration(n int) time.Duration {
	if n < 1 || n > StageCount {
		return 0
	}
	return stageDefinitions[n-1].Duration
}

// FinancingStage is one milestone. Overdue is a lateness flag: an overdue stage
// can still be completed.
type FinancingStage struct {
	Number      int               `json:"number"`
	Name        string            `json:"name"`
	Status      StageStatus       `json:"status"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	Deadline    *time.Time        `json:"deadline,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

func (s *FinancingStage) IsOpen() bool {
	return s.Status == StageStatusInProgress || s.Status == StageStatusOverdue
}

func (s *FinancingStage) start(now time.Time) {
	deadline := now.Add(StageDuration(s.Number))
	s.Status = StageStatusInProgress
	s.StartedAt = &now
	s.Deadline = &deadline
}

// CreditFinancingTracker follows a buyer's bank financing through five ordered stages.
type CreditFinancingTracker struct {
	ID              int32            `json:"id"`
	ReservationID   int32            `json:"reservation_id"`
	AssignedTo      int32            `json:"assigned_to"`
	BankName        string           `json:"bank_name"`
	IsSupportedBank bool             `json:"is_supported_bank"`
	Stages          []FinancingStage `json:"stages"`
	OverallStatus   FinancingStatus  `json:"overall_status"`
	RejectionReason string           `json:"rejection_reason"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewCreditFinancingTracker starts financing on a confirmed, bank-financed
// reservation with stage 1 in progress.
func NewCreditFinancingTracker(res *Reservation, assignee int32, isSupportedBank bool, bankName string, now time.Time) (*CreditFinancingTracker, error) {
	if res.Status != ReservationStatusConfirmed {
		return nil, transitionError(ErrReservationNotConfirmed, "reservation", res.ID,
			string(res.Status), string(ReservationStatusConfirmed), "financing requires a confirmed reservation")
	}
	if !res.UsesBankFinancing() {
		return nil, ValidationError("reservation payment method is " + string(res.PaymentMethod) + ", not bank financing")
	}
	if assignee <= 0 {
		return nil, ValidationError("assignee is required")
	}

	t := &CreditFinancingTracker{
		ReservationID:   res.ID,
		AssignedTo:      assignee,
		BankName:        strings.TrimSpace(bankName),
		IsSupportedBank: isSupportedBank,
		Stages:          NewStages(),
		OverallStatus:   FinancingStatusInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t.Stages[0].start(now)
	return t, nil
}

// NewStages returns the five stages, all pending.
func NewStages() []FinancingStage {
	stages := make([]FinancingStage, StageCount)
	for i, def := range stageDefinitions {
		stages[i] = FinancingStage{Number: def.Number, Name: def.Name, Status: StageStatusPending}
	}
	return stages
}

// Stage returns stage n (1-based).
func (t *CreditFinancingTracker) Stage(n int) (*FinancingStage, error) {
	if n < 1 || n > len(t.Stages) {
		return nil, ValidationError(fmt.Sprintf("stage must be between 1 and %d", StageCount))
	}
	return &t.Stages[n-1], nil
}

// CurrentStage returns the first stage that is not completed, or 0 when every
// stage is done.
func (t *CreditFinancingTracker) CurrentStage() int {
	for _, s := range t.Stages {
		if s.Status != StageStatusCompleted {
			return s.Number
		}
	}
	return 0
}

// Progress returns the share of completed stages as a percentage.
func (t *CreditFinancingTracker) Progress() int {
	done := 0
	for _, s := range t.Stages {
		if s.Status == StageStatusCompleted {
			done++
		}
	}
	return done * 100 / StageCount
}

func (t *CreditFinancingTracker) IsTerminal() bool {
	return t.OverallStatus != FinancingStatusInProgress
}

func (t *CreditFinancingTracker) requireInProgress(to string) error {
	if t.OverallStatus != FinancingStatusInProgress {
		return transitionError(ErrInvalidTransition, "financing tracker", t.ID,
			string(t.OverallStatus), to, "tracker is closed")
	}
	return nil
}

// CompleteStage completes stage n, which must be the current stage, and starts
// the next one with a fresh deadline. Completing the last stage completes the
// tracker.
func (t *CreditFinancingTracker) CompleteStage(n int, data map[string]string, now time.Time) error {
	if err := t.requireInProgress(fmt.Sprintf("stage %d %s", n, StageStatusCompleted)); err != nil {
		return err
	}
	stage, err := t.Stage(n)
	if err != nil {
		return err
	}
	current := t.CurrentStage()
	if n != current {
		return transitionError(ErrOutOfOrder, "financing tracker", t.ID,
			fmt.Sprintf("stage %d %s", n, stage.Status), fmt.Sprintf("stage %d %s", n, StageStatusCompleted),
			fmt.Sprintf("stage %d must be completed first", current))
	}
	if !stage.IsOpen() {
		return transitionError(ErrInvalidTransition, "financing tracker", t.ID,
			fmt.Sprintf("stage %d %s", n, stage.Status), fmt.Sprintf("stage %d %s", n, StageStatusCompleted), "stage not started")
	}

	if len(data) > 0 {
		if stage.Data == nil {
			stage.Data = make(map[string]string, len(data))
		}
		for k, v := range data {
			stage.Data[k] = v
		}
	}
	stage.Status = StageStatusCompleted
	stage.CompletedAt = &now
	t.UpdatedAt = now

	if n == StageCount {
		t.OverallStatus = FinancingStatusCompleted
		t.CompletedAt = &now
		return nil
	}
	t.Stages[n].start(now)
	return nil
}

// Advance completes whichever stage is current.
func (t *CreditFinancingTracker) Advance(data map[string]string, now time.Time) error {
	current := t.CurrentStage()
	if current == 0 {
		return t.requireInProgress("next stage")
	}
	return t.CompleteStage(current, data, now)
}

func (t *CreditFinancingTracker) Reject(reason string, now time.Time) error {
	return t.close(FinancingStatusRejected, reason, now)
}

func (t *CreditFinancingTracker) Cancel(reason string, now time.Time) error {
	return t.close(FinancingStatusCancelled, reason, now)
}

func (t *CreditFinancingTracker) close(to FinancingStatus, reason string, now time.Time) error {
	if err := t.requireInProgress(string(to)); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return ValidationError("reason is required")
	}
	t.OverallStatus = to
	t.RejectionReason = strings.TrimSpace(reason)
	t.UpdatedAt = now
	return nil
}

// FlagOverdue marks every in-progress stage whose deadline has passed and
// returns the flagged stage numbers. Closed trackers are left alone.
func (t *CreditFinancingTracker) FlagOverdue(now time.Time) []int {
	if t.IsTerminal() {
		return nil
	}
	var flagged []int
	for i := range t.Stages {
		s := &t.Stages[i]
		if s.Status == StageStatusInProgress && s.Deadline != nil && now.After(*s.Deadline) {
			s.Status = StageStatusOverdue
			flagged = append(flagged, s.Number)
		}
	}
	if len(flagged) > 0 {
		t.UpdatedAt = now
	}
	return flagged
}
