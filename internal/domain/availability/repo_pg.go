package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository { return &templateRepoPG{pool: pool} }

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, doctor_id, weekday, available, windows, updated_at`

func scanTemplate(row pgx.Row) (*DayTemplate, error) {
	var t DayTemplate
	var weekday int
	var windows []byte
	err := row.Scan(&t.ID, &t.DoctorID, &weekday, &t.Available, &windows, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Weekday = time.Weekday(weekday)
	if err := json.Unmarshal(windows, &t.Windows); err != nil {
		return nil, fmt.Errorf("decoding work windows: %w", err)
	}
	return &t, nil
}

func (r *templateRepoPG) GetByDoctorAndWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*DayTemplate, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM day_templates WHERE doctor_id = $1 AND weekday = $2`,
		doctorID, int(weekday)))
}

func (r *templateRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DayTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM day_templates WHERE doctor_id = $1 ORDER BY weekday`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DayTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) Upsert(ctx context.Context, t *DayTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	windows, err := json.Marshal(t.Windows)
	if err != nil {
		return fmt.Errorf("encoding work windows: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO day_templates (id, doctor_id, weekday, available, windows)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (doctor_id, weekday)
		DO UPDATE SET available = EXCLUDED.available, windows = EXCLUDED.windows, updated_at = NOW()`,
		t.ID, t.DoctorID, int(t.Weekday), t.Available, windows)
	return err
}

// =========== Holiday Repository ===========

type holidayRepoPG struct{ pool *pgxpool.Pool }

func NewHolidayRepoPG(pool *pgxpool.Pool) HolidayRepository { return &holidayRepoPG{pool: pool} }

func (r *holidayRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *holidayRepoPG) Add(ctx context.Context, h *Holiday) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO holidays (id, doctor_id, holiday_date, reason)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (doctor_id, holiday_date) DO UPDATE SET reason = EXCLUDED.reason`,
		h.ID, h.DoctorID, h.Date, h.Reason)
	return err
}

func (r *holidayRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Holiday, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, holiday_date, reason, created_at
		FROM holidays WHERE doctor_id = $1 ORDER BY holiday_date`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.DoctorID, &h.Date, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}

func (r *holidayRepoPG) Exists(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM holidays WHERE doctor_id = $1 AND holiday_date = $2)`,
		doctorID, date).Scan(&exists)
	return exists, err
}
