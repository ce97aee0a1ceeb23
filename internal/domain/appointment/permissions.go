package appointment

import (
	"time"

	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

// Relation is the actor's relationship to a specific appointment.
type Relation int

const (
	RelationNone Relation = iota
	RelationAdmin
	RelationOwnDoctor
	RelationOwnPatient
)

// Patch carries the fields a PUT may change. Nil means "leave alone".
type Patch struct {
	Status             *Status
	Date               *time.Time
	TimeSlot           *timeofday.TimeOfDay
	PaymentStatus      *PaymentStatus
	Amount             *float64
	Reason             *string
	Notes              *string
	Prescription       *string
	CancellationReason *string
}

// field names used by the permission table
const (
	fieldStatus             = "status"
	fieldDate               = "date"
	fieldTimeSlot           = "time_slot"
	fieldPaymentStatus      = "payment_status"
	fieldAmount             = "amount"
	fieldReason             = "reason"
	fieldNotes              = "notes"
	fieldPrescription       = "prescription"
	fieldCancellationReason = "cancellation_reason"
)

// permissions maps each relation to the patch fields it may set.
// Unlisted fields are silently dropped rather than rejected, so a
// client sending a broader patch than its role allows still succeeds
// with the permitted subset.
var permissions = map[Relation]map[string]bool{
	RelationAdmin: {
		fieldStatus: true, fieldDate: true, fieldTimeSlot: true,
		fieldPaymentStatus: true, fieldAmount: true, fieldReason: true,
		fieldNotes: true, fieldPrescription: true, fieldCancellationReason: true,
	},
	RelationOwnDoctor: {
		fieldStatus: true, fieldNotes: true, fieldPrescription: true,
		// cancelling requires a reason, so the reason field rides along
		// with the status permission
		fieldCancellationReason: true,
	},
	RelationOwnPatient: {
		fieldNotes: true, fieldCancellationReason: true,
		// status is value-gated: patients may only cancel
		fieldStatus: true,
	},
}

// Filter strips patch fields the relation is not allowed to set. The
// patient's status permission is narrower than the field itself: any
// target other than cancelled is dropped.
func (p Patch) Filter(rel Relation) Patch {
	allowed := permissions[rel]
	var out Patch

	if p.Status != nil && allowed[fieldStatus] {
		if rel != RelationOwnPatient || *p.Status == StatusCancelled {
			out.Status = p.Status
		}
	}
	if p.Date != nil && allowed[fieldDate] {
		out.Date = p.Date
	}
	if p.TimeSlot != nil && allowed[fieldTimeSlot] {
		out.TimeSlot = p.TimeSlot
	}
	if p.PaymentStatus != nil && allowed[fieldPaymentStatus] {
		out.PaymentStatus = p.PaymentStatus
	}
	if p.Amount != nil && allowed[fieldAmount] {
		out.Amount = p.Amount
	}
	if p.Reason != nil && allowed[fieldReason] {
		out.Reason = p.Reason
	}
	if p.Notes != nil && allowed[fieldNotes] {
		out.Notes = p.Notes
	}
	if p.Prescription != nil && allowed[fieldPrescription] {
		out.Prescription = p.Prescription
	}
	if p.CancellationReason != nil && allowed[fieldCancellationReason] {
		out.CancellationReason = p.CancellationReason
	}
	return out
}
