package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

var (
	ErrNotFound        = errors.New("appointment not found")
	ErrSlotUnavailable = errors.New("time slot is no longer available")
)

// Filter narrows a listing. Nil fields are not applied.
type Filter struct {
	Status    *Status
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

type Repository interface {
	// Create inserts a new appointment. A conflicting open booking for
	// the same (doctor, date, slot) surfaces as ErrSlotUnavailable.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// HasOpenConflict reports whether an open appointment other than
	// exclude already holds (doctorID, date, slot).
	HasOpenConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, slot timeofday.TimeOfDay, exclude uuid.UUID) (bool, error)
	// BookedSlots returns the start times held by open appointments for
	// a doctor's day.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error)
	// Search lists appointments matching the filter, sorted by date
	// descending then time slot ascending.
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	// ListUpcoming returns open appointments whose date falls in
	// [from, to], for the reminder sweep.
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*Appointment, error)
}
