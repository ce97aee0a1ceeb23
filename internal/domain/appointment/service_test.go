package appointment

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/lock"
	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

// mockRepo enforces the open-slot uniqueness the partial index provides
// in production, so conflict behavior is exercised end to end.
type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) openConflict(doctorID uuid.UUID, date time.Time, slot timeofday.TimeOfDay, exclude uuid.UUID) bool {
	for _, a := range m.appts {
		if a.ID != exclude && a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeSlot == slot && a.Open() {
			return true
		}
	}
	return false
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if m.openConflict(a.DoctorID, a.Date, a.TimeSlot, a.ID) {
		return ErrSlotUnavailable
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	if a.Open() && m.openConflict(a.DoctorID, a.Date, a.TimeSlot, a.ID) {
		return ErrSlotUnavailable
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) HasOpenConflict(_ context.Context, doctorID uuid.UUID, date time.Time, slot timeofday.TimeOfDay, exclude uuid.UUID) (bool, error) {
	return m.openConflict(doctorID, date, slot, exclude), nil
}

func (m *mockRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error) {
	var slots []timeofday.TimeOfDay
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Open() {
			slots = append(slots, a.TimeSlot)
		}
	}
	return slots, nil
}

func (m *mockRepo) Search(_ context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.StartDate != nil && a.Date.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && a.Date.After(*f.EndDate) {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].TimeSlot.Before(items[j].TimeSlot)
	})
	total := len(items)
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], total, nil
}

func (m *mockRepo) ListUpcoming(_ context.Context, from, to time.Time) ([]*Appointment, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if a.Open() && !a.Date.Before(from) && !a.Date.After(to) {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, nil
}

type mockDirectory struct {
	doctors       map[uuid.UUID]*identity.Doctor
	patients      map[uuid.UUID]*identity.Patient
	doctorByUser  map[string]*identity.Doctor
	patientByUser map[string]*identity.Patient
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		doctors:       make(map[uuid.UUID]*identity.Doctor),
		patients:      make(map[uuid.UUID]*identity.Patient),
		doctorByUser:  make(map[string]*identity.Doctor),
		patientByUser: make(map[string]*identity.Patient),
	}
}

func (m *mockDirectory) addDoctor(d *identity.Doctor) *identity.Doctor {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.doctors[d.ID] = d
	if d.UserID != nil {
		m.doctorByUser[*d.UserID] = d
	}
	return d
}

func (m *mockDirectory) addPatient(p *identity.Patient) *identity.Patient {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	if p.UserID != nil {
		m.patientByUser[*p.UserID] = p
	}
	return p
}

func (m *mockDirectory) ActiveDoctor(_ context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	if !d.Active {
		return nil, identity.ErrDoctorInactive
	}
	return d, nil
}

func (m *mockDirectory) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	return p, nil
}

func (m *mockDirectory) DoctorByUserID(_ context.Context, userID string) (*identity.Doctor, error) {
	d, ok := m.doctorByUser[userID]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockDirectory) PatientByUserID(_ context.Context, userID string) (*identity.Patient, error) {
	p, ok := m.patientByUser[userID]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	return p, nil
}

func (m *mockDirectory) ResolvePatient(ctx context.Context, actor *auth.Identity, guest *identity.GuestInfo) (*identity.Patient, error) {
	if actor != nil && actor.Role == auth.RolePatient {
		return m.PatientByUserID(ctx, actor.UserID)
	}
	if guest == nil || guest.Name == "" {
		return nil, identity.ErrNoPatientIdentity
	}
	return m.addPatient(&identity.Patient{Name: guest.Name, Phone: guest.Phone, Email: guest.Email}), nil
}

type mockSchedule struct {
	holidays  map[string]bool
	templates map[time.Weekday]*availability.DayTemplate
}

func newMockSchedule() *mockSchedule {
	return &mockSchedule{
		holidays:  make(map[string]bool),
		templates: make(map[time.Weekday]*availability.DayTemplate),
	}
}

func (m *mockSchedule) IsHoliday(_ context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	return m.holidays[doctorID.String()+":"+date.Format("2006-01-02")], nil
}

func (m *mockSchedule) TemplateFor(_ context.Context, _ uuid.UUID, weekday time.Weekday) (*availability.DayTemplate, error) {
	t, ok := m.templates[weekday]
	if !ok {
		return nil, availability.ErrTemplateNotFound
	}
	return t, nil
}

// Tuesday morning, 09:31.
var testNow = time.Date(2026, 9, 1, 9, 31, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *mockRepo
	dir      *mockDirectory
	schedule *mockSchedule
	doctor   *identity.Doctor
	patient  *identity.Patient
}

func newFixture() *fixture {
	repo := newMockRepo()
	dir := newMockDirectory()
	schedule := newMockSchedule()
	svc := NewService(repo, dir, schedule, lock.NewNoopLocker())
	svc.now = func() time.Time { return testNow }

	docUser, patUser := "doc-user", "pat-user"
	doctor := dir.addDoctor(&identity.Doctor{
		UserID: &docUser, Name: "Dr. Mensah", ConsultationFee: 150,
		SlotDurationMinutes: 30, Active: true,
	})
	patient := dir.addPatient(&identity.Patient{
		UserID: &patUser, Name: "Lena Varga", Email: "lena@example.com",
	})

	schedule.templates[time.Wednesday] = &availability.DayTemplate{
		DoctorID: doctor.ID, Weekday: time.Wednesday, Available: true,
		Windows: []availability.WorkWindow{{
			Start: timeofday.MustParse("09:00"), End: timeofday.MustParse("12:00"), Available: true,
		}},
	}
	schedule.templates[time.Tuesday] = &availability.DayTemplate{
		DoctorID: doctor.ID, Weekday: time.Tuesday, Available: true,
		Windows: []availability.WorkWindow{{
			Start: timeofday.MustParse("09:00"), End: timeofday.MustParse("10:30"), Available: true,
		}},
	}

	return &fixture{svc: svc, repo: repo, dir: dir, schedule: schedule, doctor: doctor, patient: patient}
}

func (f *fixture) patientActor() auth.Identity {
	return auth.Identity{UserID: *f.patient.UserID, Role: auth.RolePatient}
}

func (f *fixture) doctorActor() auth.Identity {
	return auth.Identity{UserID: *f.doctor.UserID, Role: auth.RoleDoctor}
}

func adminActor() auth.Identity {
	return auth.Identity{UserID: "admin-user", Role: auth.RoleAdmin}
}

var tomorrow = time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC) // Wednesday

func (f *fixture) book(t *testing.T, slot string) *Appointment {
	t.Helper()
	actor := f.patientActor()
	appt, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     tomorrow,
		TimeSlot: timeofday.MustParse(slot),
		Reason:   "checkup",
		Amount:   150,
	}, &actor)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	return appt
}

func TestGetDaySchedule_HolidayShortCircuit(t *testing.T) {
	f := newFixture()
	f.schedule.holidays[f.doctor.ID.String()+":2026-09-02"] = true

	out, err := f.svc.GetDaySchedule(context.Background(), f.doctor.ID, tomorrow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Slots) != 0 {
		t.Errorf("holiday must yield zero slots, got %d", len(out.Slots))
	}
	if out.Message == "" {
		t.Error("holiday response should carry a message")
	}
}

func TestGetDaySchedule_NoTemplate(t *testing.T) {
	f := newFixture()
	thursday := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

	out, err := f.svc.GetDaySchedule(context.Background(), f.doctor.ID, thursday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Slots) != 0 {
		t.Errorf("missing template must yield zero slots, got %d", len(out.Slots))
	}
}

func TestGetDaySchedule_BookedSlotMarked(t *testing.T) {
	f := newFixture()
	f.book(t, "09:30")

	out, err := f.svc.GetDaySchedule(context.Background(), f.doctor.ID, tomorrow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range out.Slots {
		wantAvailable := s.Start.String() != "09:30"
		if s.Available != wantAvailable {
			t.Errorf("slot %s: available=%v, want %v", s.Start, s.Available, wantAvailable)
		}
	}
}

func TestGetDaySchedule_TodaySuppressesPast(t *testing.T) {
	f := newFixture()
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	out, err := f.svc.GetDaySchedule(context.Background(), f.doctor.ID, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// template 09:00-10:30 at 09:31 leaves only the 10:00 slot
	wantAvailable := map[string]bool{"09:00": false, "09:30": false, "10:00": true}
	for _, s := range out.Slots {
		if s.Available != wantAvailable[s.Start.String()] {
			t.Errorf("slot %s: available=%v, want %v", s.Start, s.Available, wantAvailable[s.Start.String()])
		}
	}
}

func TestGetDaySchedule_PastDate(t *testing.T) {
	f := newFixture()
	yesterday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.GetDaySchedule(context.Background(), f.doctor.ID, yesterday)
	if !errors.Is(err, ErrPastDate) {
		t.Errorf("expected ErrPastDate, got %v", err)
	}
}

func TestGetDaySchedule_InactiveDoctor(t *testing.T) {
	f := newFixture()
	f.doctor.Active = false

	_, err := f.svc.GetDaySchedule(context.Background(), f.doctor.ID, tomorrow)
	if !errors.Is(err, identity.ErrDoctorInactive) {
		t.Errorf("expected ErrDoctorInactive, got %v", err)
	}
}

func TestCreate_Pending(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	if appt.Status != StatusPending {
		t.Errorf("new appointment should be pending, got %s", appt.Status)
	}
	if appt.PaymentStatus != PaymentPending {
		t.Errorf("payment should start pending, got %s", appt.PaymentStatus)
	}
	if appt.PatientID != f.patient.ID {
		t.Error("appointment should reference the actor's patient profile")
	}
}

func TestCreate_DoubleBookingLoses(t *testing.T) {
	f := newFixture()
	f.book(t, "09:00")

	actor := f.patientActor()
	_, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     tomorrow,
		TimeSlot: timeofday.MustParse("09:00"),
		Reason:   "checkup",
		Amount:   150,
	}, &actor)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}

	open := 0
	for _, a := range f.repo.appts {
		if a.Open() && a.TimeSlot.String() == "09:00" {
			open++
		}
	}
	if open != 1 {
		t.Errorf("exactly one open appointment must hold the slot, found %d", open)
	}
}

func TestCreate_CancelledSlotRebookable(t *testing.T) {
	f := newFixture()
	first := f.book(t, "09:00")

	reason := "can't make it"
	cancelled := StatusCancelled
	if _, err := f.svc.Update(context.Background(), first.ID, Patch{
		Status: &cancelled, CancellationReason: &reason,
	}, f.patientActor()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	f.book(t, "09:00")
}

func TestCreate_GuestBooking(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     tomorrow,
		TimeSlot: timeofday.MustParse("10:00"),
		Reason:   "walk-in",
		Amount:   150,
		Guest:    &identity.GuestInfo{Name: "Guest Person", Phone: "555-0104"},
	}, nil)
	if err != nil {
		t.Fatalf("guest booking failed: %v", err)
	}

	p, err := f.dir.GetPatient(context.Background(), appt.PatientID)
	if err != nil {
		t.Fatalf("guest patient record missing: %v", err)
	}
	if p.UserID != nil {
		t.Error("guest patient should have no account link")
	}
}

func TestCreate_NoIdentity(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     tomorrow,
		TimeSlot: timeofday.MustParse("10:00"),
		Reason:   "walk-in",
		Amount:   150,
	}, nil)
	if !errors.Is(err, identity.ErrNoPatientIdentity) {
		t.Errorf("expected ErrNoPatientIdentity, got %v", err)
	}
}

func TestCreate_PastRejected(t *testing.T) {
	f := newFixture()
	actor := f.patientActor()

	t.Run("past date", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), CreateRequest{
			DoctorID: f.doctor.ID,
			Date:     time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			TimeSlot: timeofday.MustParse("09:00"),
			Reason:   "checkup",
			Amount:   150,
		}, &actor)
		if !errors.Is(err, ErrPastDate) {
			t.Errorf("expected ErrPastDate, got %v", err)
		}
	})

	t.Run("past slot today", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), CreateRequest{
			DoctorID: f.doctor.ID,
			Date:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			TimeSlot: timeofday.MustParse("09:00"),
			Reason:   "checkup",
			Amount:   150,
		}, &actor)
		if !errors.Is(err, ErrPastDate) {
			t.Errorf("expected ErrPastDate, got %v", err)
		}
	})
}

func TestCreate_AmountRequired(t *testing.T) {
	f := newFixture()
	actor := f.patientActor()

	_, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     tomorrow,
		TimeSlot: timeofday.MustParse("09:00"),
		Reason:   "checkup",
	}, &actor)
	if !errors.Is(err, ErrAmountRequired) {
		t.Errorf("expected ErrAmountRequired, got %v", err)
	}
}

func TestUpdate_PatientFieldFiltering(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	completed := "completed"
	notes := "please call before"
	st := Status(completed)
	updated, err := f.svc.Update(context.Background(), appt.ID, Patch{
		Status: &st,
		Notes:  &notes,
	}, f.patientActor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusPending {
		t.Errorf("status must stay pending, got %s", updated.Status)
	}
	if updated.Notes != notes {
		t.Errorf("notes should be applied, got %q", updated.Notes)
	}
}

func TestUpdate_CancelWithoutReason(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	cancelled := StatusCancelled
	_, err := f.svc.Update(context.Background(), appt.ID, Patch{Status: &cancelled}, f.patientActor())
	if !errors.Is(err, ErrCancellationReason) {
		t.Errorf("expected ErrCancellationReason, got %v", err)
	}
}

func TestUpdate_CancelStampsAudit(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	cancelled := StatusCancelled
	reason := "feeling better"
	updated, err := f.svc.Update(context.Background(), appt.ID, Patch{
		Status: &cancelled, CancellationReason: &reason,
	}, f.patientActor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CancelledAt == nil || updated.CancelledBy == nil {
		t.Error("cancellation must stamp cancelled_at and cancelled_by")
	}
	if *updated.CancelledBy != *f.patient.UserID {
		t.Errorf("cancelled_by should be the actor, got %s", *updated.CancelledBy)
	}
}

func TestUpdate_DoctorConfirmsAndCompletes(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	confirmed := StatusConfirmed
	if _, err := f.svc.Update(context.Background(), appt.ID, Patch{Status: &confirmed}, f.doctorActor()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	completed := StatusCompleted
	prescription := "rest and fluids"
	updated, err := f.svc.Update(context.Background(), appt.ID, Patch{
		Status: &completed, Prescription: &prescription,
	}, f.doctorActor())
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if updated.Status != StatusCompleted || updated.Prescription != prescription {
		t.Errorf("unexpected result: %+v", updated)
	}
}

func TestUpdate_TerminalRefusesStatusChange(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	cancelled := StatusCancelled
	reason := "conflict"
	if _, err := f.svc.Update(context.Background(), appt.ID, Patch{
		Status: &cancelled, CancellationReason: &reason,
	}, f.patientActor()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	confirmed := StatusConfirmed
	_, err := f.svc.Update(context.Background(), appt.ID, Patch{Status: &confirmed}, adminActor())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdate_StrangerForbidden(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	otherUser := "other-pat-user"
	f.dir.addPatient(&identity.Patient{UserID: &otherUser, Name: "Someone Else"})

	notes := "sneaky"
	_, err := f.svc.Update(context.Background(), appt.ID, Patch{Notes: &notes},
		auth.Identity{UserID: otherUser, Role: auth.RolePatient})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdate_RescheduleConflict(t *testing.T) {
	f := newFixture()
	first := f.book(t, "09:00")
	second := f.book(t, "09:30")

	slot := timeofday.MustParse("09:00")
	_, err := f.svc.Update(context.Background(), second.ID, Patch{TimeSlot: &slot}, adminActor())
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}

	// moving an appointment onto its own slot is not a conflict
	own := first.TimeSlot
	if _, err := f.svc.Update(context.Background(), first.ID, Patch{TimeSlot: &own}, adminActor()); err != nil {
		t.Errorf("rescheduling onto own slot should succeed: %v", err)
	}
}

func TestDelete_AdminSoftCancel(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	if err := f.svc.Delete(context.Background(), appt.ID, adminActor()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), appt.ID)
	if stored.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", stored.Status)
	}
	if stored.CancellationReason == nil || *stored.CancellationReason != adminDeleteReason {
		t.Error("expected the fixed administrator reason")
	}
}

func TestDelete_NonAdminForbidden(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	if err := f.svc.Delete(context.Background(), appt.ID, f.patientActor()); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), appt.ID, f.doctorActor()); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestList_PatientScopePinned(t *testing.T) {
	f := newFixture()
	mine := f.book(t, "09:00")

	otherUser := "other-pat-user"
	other := f.dir.addPatient(&identity.Patient{UserID: &otherUser, Name: "Other Patient"})
	otherActor := auth.Identity{UserID: otherUser, Role: auth.RolePatient}
	otherAppt, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     tomorrow,
		TimeSlot: timeofday.MustParse("10:00"),
		Reason:   "checkup",
		Amount:   150,
	}, &otherActor)
	if err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	// filtering for the other patient's id must still return only own rows
	items, total, err := f.svc.List(context.Background(), Filter{PatientID: &other.ID}, f.patientActor(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected exactly own appointment, got %d", total)
	}
	if items[0].ID != mine.ID {
		t.Error("returned a foreign appointment")
	}
	if items[0].ID == otherAppt.ID {
		t.Error("patient scope leak")
	}
}

func TestList_DoctorScope(t *testing.T) {
	f := newFixture()
	f.book(t, "09:00")

	items, total, err := f.svc.List(context.Background(), Filter{}, f.doctorActor(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 appointment, got %d", total)
	}
	if items[0].DoctorID != f.doctor.ID {
		t.Error("doctor scope leak")
	}
}

func TestList_MissingProfile(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.List(context.Background(), Filter{}, auth.Identity{UserID: "ghost", Role: auth.RolePatient}, 20, 0)
	if !errors.Is(err, identity.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestList_SortOrder(t *testing.T) {
	f := newFixture()
	f.book(t, "10:00")
	f.book(t, "09:00")

	dayAfter := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC) // next Wednesday
	actor := f.patientActor()
	if _, err := f.svc.Create(context.Background(), CreateRequest{
		DoctorID: f.doctor.ID,
		Date:     dayAfter,
		TimeSlot: timeofday.MustParse("09:00"),
		Reason:   "follow-up",
		Amount:   150,
	}, &actor); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	items, _, err := f.svc.List(context.Background(), Filter{}, adminActor(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(items))
	}
	if !items[0].Date.Equal(dayAfter) {
		t.Error("newest date should sort first")
	}
	if items[1].TimeSlot.String() != "09:00" || items[2].TimeSlot.String() != "10:00" {
		t.Error("same-date rows should sort by time slot ascending")
	}
}

func TestGet_RoleChecked(t *testing.T) {
	f := newFixture()
	appt := f.book(t, "09:00")

	if _, err := f.svc.Get(context.Background(), appt.ID, f.patientActor()); err != nil {
		t.Errorf("own patient should read: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), appt.ID, f.doctorActor()); err != nil {
		t.Errorf("own doctor should read: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), appt.ID, adminActor()); err != nil {
		t.Errorf("admin should read: %v", err)
	}

	otherUser := "other-doc-user"
	f.dir.addDoctor(&identity.Doctor{UserID: &otherUser, Active: true})
	_, err := f.svc.Get(context.Background(), appt.ID, auth.Identity{UserID: otherUser, Role: auth.RoleDoctor})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for unrelated doctor, got %v", err)
	}

	if _, err := f.svc.Get(context.Background(), uuid.New(), adminActor()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
