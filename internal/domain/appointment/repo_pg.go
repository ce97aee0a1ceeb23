package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, patient_id, doctor_id, service_id, appointment_date, time_slot,
	duration_minutes, status, payment_status, amount, reason, notes, prescription,
	cancelled_by, cancelled_at, cancellation_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ServiceID, &a.Date, &a.TimeSlot,
		&a.DurationMinutes, &a.Status, &a.PaymentStatus, &a.Amount, &a.Reason, &a.Notes,
		&a.Prescription, &a.CancelledBy, &a.CancelledAt, &a.CancellationReason,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

// isUniqueViolation matches the open-slot partial unique index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, service_id, appointment_date,
			time_slot, duration_minutes, status, payment_status, amount, reason, notes, prescription)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		a.ID, a.PatientID, a.DoctorID, a.ServiceID, a.Date, a.TimeSlot,
		a.DurationMinutes, a.Status, a.PaymentStatus, a.Amount, a.Reason, a.Notes, a.Prescription)
	if isUniqueViolation(err) {
		return ErrSlotUnavailable
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET appointment_date=$2, time_slot=$3, status=$4,
			payment_status=$5, amount=$6, reason=$7, notes=$8, prescription=$9,
			cancelled_by=$10, cancelled_at=$11, cancellation_reason=$12, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Date, a.TimeSlot, a.Status, a.PaymentStatus, a.Amount,
		a.Reason, a.Notes, a.Prescription, a.CancelledBy, a.CancelledAt, a.CancellationReason)
	if isUniqueViolation(err) {
		return ErrSlotUnavailable
	}
	return err
}

func (r *repoPG) HasOpenConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, slot timeofday.TimeOfDay, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND time_slot = $3
			  AND status IN ('pending','confirmed') AND id <> $4
		)`, doctorID, date, slot, exclude).Scan(&exists)
	return exists, err
}

func (r *repoPG) BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT time_slot FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		  AND status IN ('pending','confirmed')
		ORDER BY time_slot`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []timeofday.TimeOfDay
	for rows.Next() {
		var t timeofday.TimeOfDay
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		slots = append(slots, t)
	}
	return slots, rows.Err()
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1

	addClause := func(clause string, arg interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, arg)
		idx++
	}

	if f.Status != nil {
		addClause(` AND status = $%d`, *f.Status)
	}
	if f.DoctorID != nil {
		addClause(` AND doctor_id = $%d`, *f.DoctorID)
	}
	if f.PatientID != nil {
		addClause(` AND patient_id = $%d`, *f.PatientID)
	}
	if f.StartDate != nil {
		addClause(` AND appointment_date >= $%d`, *f.StartDate)
	}
	if f.EndDate != nil {
		addClause(` AND appointment_date <= $%d`, *f.EndDate)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY appointment_date DESC, time_slot ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListUpcoming(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2
		  AND status IN ('pending','confirmed')
		ORDER BY appointment_date, time_slot`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
