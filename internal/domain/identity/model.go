package identity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSlotDuration is the consultation length used when a doctor has
// not configured one.
const DefaultSlotDuration = 30

// Doctor maps to the doctors table.
type Doctor struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	UserID              *string   `db:"user_id" json:"user_id,omitempty"`
	Name                string    `db:"name" json:"name"`
	Specialty           string    `db:"specialty" json:"specialty"`
	ConsultationFee     float64   `db:"consultation_fee" json:"consultation_fee"`
	SlotDurationMinutes int       `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// SlotDuration returns the doctor's consultation length in minutes.
func (d *Doctor) SlotDuration() int {
	if d.SlotDurationMinutes <= 0 {
		return DefaultSlotDuration
	}
	return d.SlotDurationMinutes
}

// Patient maps to the patients table. UserID is nil for records created
// on behalf of guests booking without an account.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GuestInfo is the contact block a guest supplies in place of an account.
type GuestInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}
