package availability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// DoctorDirectory is the slice of the identity service the handler needs
// to map an authenticated doctor onto their own profile.
type DoctorDirectory interface {
	DoctorByUserID(ctx context.Context, userID string) (*identity.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

type Handler struct {
	svc     *Service
	doctors DoctorDirectory
}

func NewHandler(svc *Service, doctors DoctorDirectory) *Handler {
	return &Handler{svc: svc, doctors: doctors}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/availability", h.GetAvailability)
	api.GET("/doctors/:id/holidays", h.ListHolidays)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.PUT("/doctors/:id/availability", h.SetAvailability)
	write.POST("/doctors/:id/holidays", h.AddHoliday)
}

// requireSelfOrAdmin lets an admin act on any doctor, but a doctor only
// on their own profile.
func (h *Handler) requireSelfOrAdmin(c echo.Context, doctorID uuid.UUID) error {
	id, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if id.Role == auth.RoleAdmin {
		return nil
	}
	d, err := h.doctors.DoctorByUserID(c.Request().Context(), id.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no doctor profile for this account")
	}
	if d.ID != doctorID {
		return echo.NewHTTPError(http.StatusForbidden, "cannot modify another doctor's schedule")
	}
	return nil
}

func doctorIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	return id, nil
}

func (h *Handler) GetAvailability(c echo.Context) error {
	doctorID, err := doctorIDParam(c)
	if err != nil {
		return err
	}
	if _, err := h.doctors.GetDoctor(c.Request().Context(), doctorID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	templates, err := h.svc.GetAvailability(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	if templates == nil {
		templates = []*DayTemplate{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"templates": templates,
	})
}

type setAvailabilityRequest struct {
	Templates []*DayTemplate `json:"templates"`
}

func (h *Handler) SetAvailability(c echo.Context) error {
	doctorID, err := doctorIDParam(c)
	if err != nil {
		return err
	}
	if err := h.requireSelfOrAdmin(c, doctorID); err != nil {
		return err
	}

	var req setAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Templates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "templates are required")
	}
	for _, t := range req.Templates {
		if t.Weekday < time.Sunday || t.Weekday > time.Saturday {
			return echo.NewHTTPError(http.StatusBadRequest, "weekday must be between 0 (Sunday) and 6 (Saturday)")
		}
	}

	if err := h.svc.SetAvailability(c.Request().Context(), doctorID, req.Templates); err != nil {
		if errors.Is(err, ErrInvalidWindow) || errors.Is(err, ErrOverlappingWindows) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"templates": req.Templates,
	})
}

func (h *Handler) ListHolidays(c echo.Context) error {
	doctorID, err := doctorIDParam(c)
	if err != nil {
		return err
	}
	holidays, err := h.svc.ListHolidays(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	if holidays == nil {
		holidays = []*Holiday{}
	}
	return c.JSON(http.StatusOK, holidays)
}

type addHolidayRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (h *Handler) AddHoliday(c echo.Context) error {
	doctorID, err := doctorIDParam(c)
	if err != nil {
		return err
	}
	if err := h.requireSelfOrAdmin(c, doctorID); err != nil {
		return err
	}

	var req addHolidayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	holiday, err := h.svc.AddHoliday(c.Request().Context(), doctorID, date, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, holiday)
}
