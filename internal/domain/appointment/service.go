package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/lock"
	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

var (
	ErrForbidden          = errors.New("not allowed to access this appointment")
	ErrPastDate           = errors.New("cannot book an appointment in the past")
	ErrInvalidTransition  = errors.New("status change not allowed from the current state")
	ErrCancellationReason = errors.New("cancellation reason is required")
	ErrAmountRequired     = errors.New("amount is required")
)

// IdentityDirectory is the slice of the identity service the booking
// layer depends on.
type IdentityDirectory interface {
	ActiveDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	DoctorByUserID(ctx context.Context, userID string) (*identity.Doctor, error)
	PatientByUserID(ctx context.Context, userID string) (*identity.Patient, error)
	ResolvePatient(ctx context.Context, actor *auth.Identity, guest *identity.GuestInfo) (*identity.Patient, error)
}

// Schedule is the slice of the availability service the booking layer
// depends on.
type Schedule interface {
	IsHoliday(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
	TemplateFor(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*availability.DayTemplate, error)
}

type Service struct {
	repo     Repository
	identity IdentityDirectory
	schedule Schedule
	locker   lock.SlotLocker

	// now is swapped out in tests
	now func() time.Time
}

func NewService(repo Repository, dir IdentityDirectory, schedule Schedule, locker lock.SlotLocker) *Service {
	return &Service{
		repo:     repo,
		identity: dir,
		schedule: schedule,
		locker:   locker,
		now:      time.Now,
	}
}

// DaySchedule is the availability view for one doctor and date.
type DaySchedule struct {
	Date            string              `json:"date"`
	DayOfWeek       string              `json:"day_of_week"`
	Slots           []availability.Slot `json:"slots"`
	DoctorName      string              `json:"doctor_name"`
	ConsultationFee float64             `json:"consultation_fee"`
	Message         string              `json:"message,omitempty"`
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetDaySchedule computes the bookable slots for a doctor and date.
// Re-queries with unchanged bookings return identical results; slots are
// always derived, never stored.
func (s *Service) GetDaySchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySchedule, error) {
	today := dateOnly(s.now())
	date = dateOnly(date)
	if date.Before(today) {
		return nil, ErrPastDate
	}

	doctor, err := s.identity.ActiveDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	out := &DaySchedule{
		Date:            date.Format("2006-01-02"),
		DayOfWeek:       date.Weekday().String(),
		Slots:           []availability.Slot{},
		DoctorName:      doctor.Name,
		ConsultationFee: doctor.ConsultationFee,
	}

	holiday, err := s.schedule.IsHoliday(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("checking holidays: %w", err)
	}
	if holiday {
		out.Message = "doctor is on holiday"
		return out, nil
	}

	tmpl, err := s.schedule.TemplateFor(ctx, doctorID, date.Weekday())
	if errors.Is(err, availability.ErrTemplateNotFound) {
		out.Message = "doctor is not available on this day"
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	if !tmpl.Available || len(tmpl.Windows) == 0 {
		out.Message = "doctor is not available on this day"
		return out, nil
	}

	slots := availability.GenerateSlots(tmpl.Windows, doctor.SlotDuration())

	bookedTimes, err := s.repo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}
	booked := make(map[string]bool, len(bookedTimes))
	for _, t := range bookedTimes {
		booked[t.String()] = true
	}

	sameDay := date.Equal(today)
	out.Slots = availability.Resolve(slots, booked, sameDay, timeofday.FromTime(s.now()))
	return out, nil
}

// CreateRequest is a validated booking request.
type CreateRequest struct {
	DoctorID  uuid.UUID
	PatientID *uuid.UUID // admin booking on behalf of a known patient
	ServiceID *uuid.UUID
	Date      time.Time
	TimeSlot  timeofday.TimeOfDay
	Duration  int
	Reason    string
	Notes     string
	Amount    float64
	Guest     *identity.GuestInfo
}

// Create books a slot. Identity resolution happens first, then the
// booking itself runs under a per-slot lock with a conflict re-check;
// the partial unique index backstops any race the lock misses.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor *auth.Identity) (*Appointment, error) {
	doctor, err := s.identity.ActiveDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	today := dateOnly(s.now())
	date := dateOnly(req.Date)
	if date.Before(today) {
		return nil, ErrPastDate
	}
	if date.Equal(today) && !req.TimeSlot.After(timeofday.FromTime(s.now())) {
		return nil, ErrPastDate
	}
	if req.Amount <= 0 {
		return nil, ErrAmountRequired
	}

	patient, err := s.resolveBookingPatient(ctx, req, actor)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration <= 0 {
		duration = doctor.SlotDuration()
	}

	appt := &Appointment{
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		ServiceID:       req.ServiceID,
		Date:            date,
		TimeSlot:        req.TimeSlot,
		DurationMinutes: duration,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		Amount:          req.Amount,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}

	err = s.locker.WithSlotLock(ctx, doctor.ID, appt.Date.Format("2006-01-02"), appt.TimeSlot.String(), func(ctx context.Context) error {
		conflict, err := s.repo.HasOpenConflict(ctx, appt.DoctorID, appt.Date, appt.TimeSlot, uuid.Nil)
		if err != nil {
			return fmt.Errorf("checking slot: %w", err)
		}
		if conflict {
			return ErrSlotUnavailable
		}
		return s.repo.Create(ctx, appt)
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, ErrSlotUnavailable
	}
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) resolveBookingPatient(ctx context.Context, req CreateRequest, actor *auth.Identity) (*identity.Patient, error) {
	if req.PatientID != nil && actor != nil && actor.Role == auth.RoleAdmin {
		return s.identity.GetPatient(ctx, *req.PatientID)
	}
	return s.identity.ResolvePatient(ctx, actor, req.Guest)
}

// relationOf derives the actor's relationship to an appointment.
func (s *Service) relationOf(ctx context.Context, actor auth.Identity, a *Appointment) Relation {
	switch actor.Role {
	case auth.RoleAdmin:
		return RelationAdmin
	case auth.RoleDoctor:
		d, err := s.identity.DoctorByUserID(ctx, actor.UserID)
		if err == nil && d.ID == a.DoctorID {
			return RelationOwnDoctor
		}
	case auth.RolePatient:
		p, err := s.identity.PatientByUserID(ctx, actor.UserID)
		if err == nil && p.ID == a.PatientID {
			return RelationOwnPatient
		}
	}
	return RelationNone
}

// Get returns a single appointment if the actor is its admin, doctor or
// patient.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Identity) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.relationOf(ctx, actor, a) == RelationNone {
		return nil, ErrForbidden
	}
	return a, nil
}

// Update applies a role-filtered patch. Fields outside the actor's
// permission set are dropped, not rejected.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch, actor auth.Identity) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rel := s.relationOf(ctx, actor, a)
	if rel == RelationNone {
		return nil, ErrForbidden
	}
	patch = patch.Filter(rel)

	if patch.Status != nil {
		if !ValidStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, *patch.Status)
		}
		if !CanTransition(a.Status, *patch.Status) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, *patch.Status)
		}
		if *patch.Status == StatusCancelled {
			reason := a.CancellationReason
			if patch.CancellationReason != nil {
				reason = patch.CancellationReason
			}
			if reason == nil || *reason == "" {
				return nil, ErrCancellationReason
			}
		}
	}

	// Rescheduling repeats the booking conflict check against the new
	// slot, excluding this appointment itself.
	newDate, newSlot := a.Date, a.TimeSlot
	if patch.Date != nil {
		newDate = dateOnly(*patch.Date)
	}
	if patch.TimeSlot != nil {
		newSlot = *patch.TimeSlot
	}
	if !newDate.Equal(a.Date) || newSlot != a.TimeSlot {
		if newDate.Before(dateOnly(s.now())) {
			return nil, ErrPastDate
		}
		conflict, err := s.repo.HasOpenConflict(ctx, a.DoctorID, newDate, newSlot, a.ID)
		if err != nil {
			return nil, fmt.Errorf("checking slot: %w", err)
		}
		if conflict {
			return nil, ErrSlotUnavailable
		}
		a.Date, a.TimeSlot = newDate, newSlot
	}

	if patch.PaymentStatus != nil {
		if !ValidPaymentStatus(*patch.PaymentStatus) {
			return nil, fmt.Errorf("invalid payment status %q", *patch.PaymentStatus)
		}
		a.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Amount != nil {
		a.Amount = *patch.Amount
	}
	if patch.Reason != nil {
		a.Reason = *patch.Reason
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if patch.Prescription != nil {
		a.Prescription = *patch.Prescription
	}
	if patch.CancellationReason != nil {
		a.CancellationReason = patch.CancellationReason
	}
	if patch.Status != nil {
		a.Status = *patch.Status
		if a.Status == StatusCancelled {
			now := s.now()
			a.CancelledAt = &now
			by := actor.UserID
			a.CancelledBy = &by
		}
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

const adminDeleteReason = "Deleted by administrator"

// Delete soft-cancels an appointment. Admin only; the record survives
// with a fixed cancellation reason.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor auth.Identity) error {
	if actor.Role != auth.RoleAdmin {
		return ErrForbidden
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == StatusCancelled {
		return nil
	}
	if IsTerminal(a.Status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, StatusCancelled)
	}

	now := s.now()
	reason := adminDeleteReason
	by := actor.UserID
	a.Status = StatusCancelled
	a.CancellationReason = &reason
	a.CancelledAt = &now
	a.CancelledBy = &by
	return s.repo.Update(ctx, a)
}

// List returns a role-scoped page of appointments. Patients and doctors
// are pinned to their own profile regardless of the filters supplied.
func (s *Service) List(ctx context.Context, f Filter, actor auth.Identity, limit, offset int) ([]*Appointment, int, error) {
	switch actor.Role {
	case auth.RolePatient:
		p, err := s.identity.PatientByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, err
		}
		f.PatientID = &p.ID
	case auth.RoleDoctor:
		d, err := s.identity.DoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, err
		}
		f.DoctorID = &d.ID
		f.PatientID = nil
	case auth.RoleAdmin:
		// admins see everything the filter asks for
	default:
		return nil, 0, ErrForbidden
	}
	return s.repo.Search(ctx, f, limit, offset)
}
