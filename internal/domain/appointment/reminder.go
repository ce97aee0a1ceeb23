package appointment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReminderSweep scans open appointments inside a lookahead window and
// dispatches a reminder for each. Delivery is a log line; the sweep is
// idempotent and safe to re-run from cron.
type ReminderSweep struct {
	repo      Repository
	logger    zerolog.Logger
	lookahead time.Duration
	now       func() time.Time
}

func NewReminderSweep(repo Repository, logger zerolog.Logger, lookahead time.Duration) *ReminderSweep {
	return &ReminderSweep{
		repo:      repo,
		logger:    logger,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// Run processes one sweep. A failure on one appointment is logged and
// skipped so the rest of the batch still goes out.
func (r *ReminderSweep) Run(ctx context.Context) error {
	from := dateOnly(r.now())
	to := dateOnly(r.now().Add(r.lookahead))

	upcoming, err := r.repo.ListUpcoming(ctx, from, to)
	if err != nil {
		return err
	}

	sent := 0
	for _, a := range upcoming {
		if err := r.remind(ctx, a); err != nil {
			r.logger.Error().
				Err(err).
				Str("appointment_id", a.ID.String()).
				Msg("reminder failed, continuing")
			continue
		}
		sent++
	}

	r.logger.Info().
		Int("total", len(upcoming)).
		Int("sent", sent).
		Str("window_end", to.Format("2006-01-02")).
		Msg("reminder sweep complete")
	return nil
}

func (r *ReminderSweep) remind(_ context.Context, a *Appointment) error {
	r.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("patient_id", a.PatientID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Str("date", a.Date.Format("2006-01-02")).
		Str("time_slot", a.TimeSlot.String()).
		Msg("appointment reminder")
	return nil
}
