package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// slots and booking are open to guests
	api.GET("/appointments/slots", h.GetSlots)
	api.POST("/appointments", h.Create)

	authed := api.Group("", auth.RequireAuth())
	authed.GET("/appointments", h.List)
	authed.GET("/appointments/:id", h.Get)
	authed.PUT("/appointments/:id", h.Update)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/appointments/:id", h.Delete)
}

// mapDomainErr translates service errors into the HTTP error taxonomy.
func mapDomainErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identity.ErrDoctorNotFound),
		errors.Is(err, identity.ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, identity.ErrNoPatientIdentity):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrPastDate),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrCancellationReason),
		errors.Is(err, ErrAmountRequired),
		errors.Is(err, identity.ErrDoctorInactive),
		errors.Is(err, availability.ErrInvalidWindow),
		errors.Is(err, availability.ErrOverlappingWindows):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func (h *Handler) GetSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	schedule, err := h.svc.GetDaySchedule(c.Request().Context(), doctorID, date)
	if err != nil {
		return mapDomainErr(err)
	}
	return c.JSON(http.StatusOK, schedule)
}

type createRequest struct {
	DoctorID  string              `json:"doctor_id"`
	PatientID string              `json:"patient_id"`
	ServiceID string              `json:"service_id"`
	Date      string              `json:"appointment_date"`
	TimeSlot  string              `json:"time_slot"`
	Duration  int                 `json:"duration_minutes"`
	Reason    string              `json:"reason"`
	Notes     string              `json:"notes"`
	Amount    float64             `json:"amount"`
	Guest     *identity.GuestInfo `json:"guest_info"`
}

func (h *Handler) Create(c echo.Context) error {
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	doctorID, err := uuid.Parse(body.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	date, err := parseDate(body.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_date must be YYYY-MM-DD")
	}
	slot, err := timeofday.Parse(body.TimeSlot)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "time_slot must be HH:MM")
	}
	if body.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	req := CreateRequest{
		DoctorID: doctorID,
		Date:     date,
		TimeSlot: slot,
		Duration: body.Duration,
		Reason:   body.Reason,
		Notes:    body.Notes,
		Amount:   body.Amount,
		Guest:    body.Guest,
	}
	if body.PatientID != "" {
		pid, err := uuid.Parse(body.PatientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		req.PatientID = &pid
	}
	if body.ServiceID != "" {
		sid, err := uuid.Parse(body.ServiceID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid service_id")
		}
		req.ServiceID = &sid
	}

	var actor *auth.Identity
	if id, ok := auth.FromContext(c.Request().Context()); ok {
		actor = &id
	}

	appt, err := h.svc.Create(c.Request().Context(), req, actor)
	if err != nil {
		return mapDomainErr(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) List(c echo.Context) error {
	actor, _ := auth.FromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var f Filter
	if v := c.QueryParam("status"); v != "" {
		st := Status(v)
		if !ValidStatus(st) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		f.Status = &st
	}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = &id
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		}
		f.StartDate = &d
	}
	if v := c.QueryParam("end_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		}
		f.EndDate = &d
	}

	items, total, err := h.svc.List(c.Request().Context(), f, actor, pg.Limit, pg.Offset())
	if err != nil {
		return mapDomainErr(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func apptIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	return id, nil
}

func (h *Handler) Get(c echo.Context) error {
	id, err := apptIDParam(c)
	if err != nil {
		return err
	}
	actor, _ := auth.FromContext(c.Request().Context())

	appt, err := h.svc.Get(c.Request().Context(), id, actor)
	if err != nil {
		return mapDomainErr(err)
	}
	return c.JSON(http.StatusOK, appt)
}

type updateRequest struct {
	Status             *string  `json:"status"`
	Date               *string  `json:"appointment_date"`
	TimeSlot           *string  `json:"time_slot"`
	PaymentStatus      *string  `json:"payment_status"`
	Amount             *float64 `json:"amount"`
	Reason             *string  `json:"reason"`
	Notes              *string  `json:"notes"`
	Prescription       *string  `json:"prescription"`
	CancellationReason *string  `json:"cancellation_reason"`
}

func (h *Handler) Update(c echo.Context) error {
	id, err := apptIDParam(c)
	if err != nil {
		return err
	}
	actor, _ := auth.FromContext(c.Request().Context())

	var body updateRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	patch := Patch{
		Amount:             body.Amount,
		Reason:             body.Reason,
		Notes:              body.Notes,
		Prescription:       body.Prescription,
		CancellationReason: body.CancellationReason,
	}
	if body.Status != nil {
		st := Status(*body.Status)
		patch.Status = &st
	}
	if body.PaymentStatus != nil {
		ps := PaymentStatus(*body.PaymentStatus)
		patch.PaymentStatus = &ps
	}
	if body.Date != nil {
		d, err := parseDate(*body.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "appointment_date must be YYYY-MM-DD")
		}
		patch.Date = &d
	}
	if body.TimeSlot != nil {
		t, err := timeofday.Parse(*body.TimeSlot)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "time_slot must be HH:MM")
		}
		patch.TimeSlot = &t
	}

	appt, err := h.svc.Update(c.Request().Context(), id, patch, actor)
	if err != nil {
		return mapDomainErr(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := apptIDParam(c)
	if err != nil {
		return err
	}
	actor, _ := auth.FromContext(c.Request().Context())

	if err := h.svc.Delete(c.Request().Context(), id, actor); err != nil {
		return mapDomainErr(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "appointment deleted",
	})
}
