package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// transitions holds the allowed next states per state. Completed,
// cancelled and no-show are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusNoShow, StatusCancelled},
}

// CanTransition reports whether an appointment may move from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// PaymentStatus tracks the payment side of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Appointment maps to the appointments table. At most one appointment
// with an open status may exist per (doctor, date, time slot); the table
// carries a partial unique index on exactly that.
type Appointment struct {
	ID                 uuid.UUID           `db:"id" json:"id"`
	PatientID          uuid.UUID           `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID           `db:"doctor_id" json:"doctor_id"`
	ServiceID          *uuid.UUID          `db:"service_id" json:"service_id,omitempty"`
	Date               time.Time           `db:"appointment_date" json:"appointment_date"`
	TimeSlot           timeofday.TimeOfDay `db:"time_slot" json:"time_slot"`
	DurationMinutes    int                 `db:"duration_minutes" json:"duration_minutes"`
	Status             Status              `db:"status" json:"status"`
	PaymentStatus      PaymentStatus       `db:"payment_status" json:"payment_status"`
	Amount             float64             `db:"amount" json:"amount"`
	Reason             string              `db:"reason" json:"reason"`
	Notes              string              `db:"notes" json:"notes,omitempty"`
	Prescription       string              `db:"prescription" json:"prescription,omitempty"`
	CancelledBy        *string             `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time          `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason *string             `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}

// Open reports whether the appointment still holds its slot.
func (a *Appointment) Open() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}
