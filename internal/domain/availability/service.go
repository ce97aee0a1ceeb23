package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWindow      = errors.New("work window end must be after start")
	ErrOverlappingWindows = errors.New("work windows overlap")
)

type Service struct {
	templates TemplateRepository
	holidays  HolidayRepository
}

func NewService(templates TemplateRepository, holidays HolidayRepository) *Service {
	return &Service{templates: templates, holidays: holidays}
}

// ValidateWindows rejects reversed and overlapping windows at write time.
// Reads still tolerate whatever is stored, so legacy data keeps working.
func ValidateWindows(windows []WorkWindow) error {
	for i, w := range windows {
		if !w.Start.Before(w.End) {
			return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Start, w.End)
		}
		for _, prev := range windows[:i] {
			if w.Start.Before(prev.End) && prev.Start.Before(w.End) {
				return fmt.Errorf("%w: %s-%s and %s-%s",
					ErrOverlappingWindows, prev.Start, prev.End, w.Start, w.End)
			}
		}
	}
	return nil
}

// SetAvailability replaces a doctor's weekly schedule. Each template is
// upserted on its (doctor, weekday) key so re-submitting is idempotent.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, templates []*DayTemplate) error {
	for _, t := range templates {
		if err := ValidateWindows(t.Windows); err != nil {
			return fmt.Errorf("weekday %s: %w", t.Weekday, err)
		}
	}
	for _, t := range templates {
		t.DoctorID = doctorID
		if err := s.templates.Upsert(ctx, t); err != nil {
			return fmt.Errorf("storing template for %s: %w", t.Weekday, err)
		}
	}
	return nil
}

func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID) ([]*DayTemplate, error) {
	return s.templates.ListByDoctor(ctx, doctorID)
}

// TemplateFor returns the doctor's template for one weekday, or
// ErrTemplateNotFound when none is configured.
func (s *Service) TemplateFor(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*DayTemplate, error) {
	return s.templates.GetByDoctorAndWeekday(ctx, doctorID, weekday)
}

func (s *Service) AddHoliday(ctx context.Context, doctorID uuid.UUID, date time.Time, reason string) (*Holiday, error) {
	h := &Holiday{
		DoctorID: doctorID,
		Date:     normalizeDate(date),
		Reason:   reason,
	}
	if err := s.holidays.Add(ctx, h); err != nil {
		return nil, fmt.Errorf("adding holiday: %w", err)
	}
	return h, nil
}

func (s *Service) ListHolidays(ctx context.Context, doctorID uuid.UUID) ([]*Holiday, error) {
	return s.holidays.ListByDoctor(ctx, doctorID)
}

func (s *Service) IsHoliday(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	return s.holidays.Exists(ctx, doctorID, normalizeDate(date))
}

// normalizeDate strips the time portion; holidays cover whole days.
func normalizeDate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
