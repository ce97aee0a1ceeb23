package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrTemplateNotFound = errors.New("availability template not found")

type TemplateRepository interface {
	GetByDoctorAndWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*DayTemplate, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DayTemplate, error)
	Upsert(ctx context.Context, t *DayTemplate) error
}

type HolidayRepository interface {
	Add(ctx context.Context, h *Holiday) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Holiday, error)
	Exists(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
}
