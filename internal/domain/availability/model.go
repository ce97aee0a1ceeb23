package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

// WorkWindow is one contiguous stretch of a doctor's working day.
type WorkWindow struct {
	Start     timeofday.TimeOfDay `db:"start_time" json:"start_time"`
	End       timeofday.TimeOfDay `db:"end_time" json:"end_time"`
	Available bool                `db:"available" json:"available"`
}

// DayTemplate is a doctor's recurring schedule for one weekday. At most
// one template exists per (doctor, weekday); the store upserts on that key.
type DayTemplate struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	DoctorID  uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Weekday   time.Weekday `db:"weekday" json:"weekday"`
	Available bool         `db:"available" json:"available"`
	Windows   []WorkWindow `db:"windows" json:"work_windows"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Holiday is a dated exception to a doctor's weekly template. The time
// portion of Date is ignored everywhere; holidays are whole days.
type Holiday struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"holiday_date" json:"date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Slot is a bookable interval derived from a template. Slots are never
// persisted; every availability query recomputes them from the template,
// holiday list and booking set.
type Slot struct {
	Start     timeofday.TimeOfDay `json:"start_time"`
	End       timeofday.TimeOfDay `json:"end_time"`
	Available bool                `json:"is_available"`
}
