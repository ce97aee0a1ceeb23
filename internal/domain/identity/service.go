package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// ErrNoPatientIdentity is returned when a booking carries neither an
// authenticated patient nor guest contact info.
var ErrNoPatientIdentity = errors.New("authentication or guest contact info required")

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{doctors: doctors, patients: patients}
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// ActiveDoctor loads a doctor and refuses inactive ones.
func (s *Service) ActiveDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, ErrDoctorInactive
	}
	return d, nil
}

func (s *Service) DoctorByUserID(ctx context.Context, userID string) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) PatientByUserID(ctx context.Context, userID string) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// ResolvePatient turns the caller into a patient record before any booking
// happens. Authenticated patients map to their own profile; guests are
// matched by email or get a fresh record. Identity resolution is a separate
// step from booking so the appointment layer only ever sees a patient id.
func (s *Service) ResolvePatient(ctx context.Context, actor *auth.Identity, guest *GuestInfo) (*Patient, error) {
	if actor != nil && actor.Role == auth.RolePatient {
		p, err := s.patients.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolving patient profile: %w", err)
		}
		return p, nil
	}

	if guest == nil {
		return nil, ErrNoPatientIdentity
	}
	if guest.Name == "" || (guest.Phone == "" && guest.Email == "") {
		return nil, fmt.Errorf("%w: guest name and phone or email required", ErrNoPatientIdentity)
	}

	if guest.Email != "" {
		if p, err := s.patients.GetByEmail(ctx, guest.Email); err == nil {
			return p, nil
		} else if !errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
	}

	p := &Patient{
		Name:  guest.Name,
		Phone: guest.Phone,
		Email: guest.Email,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating guest patient: %w", err)
	}
	return p, nil
}
