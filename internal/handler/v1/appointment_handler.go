package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateAppointment books for the authenticated patient. Any patient_id in
// the body is ignored.
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := actorFrom(c)
	req.PatientID = actor.ID.String()
	h.scheduleAppointment(c, req)
}

func (h *Handler) AdminCreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	h.scheduleAppointment(c, req)
}

func (h *Handler) scheduleAppointment(c *gin.Context, req createAppointmentRequest) {
	doctorID, err := parseOptionalUUID(req.DoctorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	patientID, err := parseOptionalUUID(req.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	a, err := h.appointments.Schedule(c.Request.Context(), &appointment.CreateAppointmentCommand{
		PatientID: patientID,
		DoctorID:  doctorID,
		StartTime: req.StartTime,
		Reason:    req.Reason,
	}, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[appointmentResponse]{
		Data:    toAppointmentResponse(a),
		Message: "appointment scheduled",
	})
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.UpdateAppointmentCommand{StartTime: req.StartTime, Reason: req.Reason}
	for _, f := range []struct {
		raw *string
		dst **uuid.UUID
	}{{req.DoctorID, &cmd.DoctorID}, {req.PatientID, &cmd.PatientID}} {
		if f.raw == nil {
			continue
		}
		v, err := uuid.Parse(*f.raw)
		if err != nil {
			respondServiceError(c, appointment.Reject(appointment.KindInvalidInput, "invalid id %q", *f.raw))
			return
		}
		*f.dst = &v
	}
	if req.Status != nil {
		s := appointment.Status(*req.Status)
		if !s.IsValid() {
			respondServiceError(c, appointment.Reject(appointment.KindInvalidInput, "invalid status %q", *req.Status))
			return
		}
		cmd.Status = &s
	}

	a, err := h.appointments.Update(c.Request.Context(), id, cmd, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[appointmentResponse]{
		Data:    toAppointmentResponse(a),
		Message: "appointment updated",
	})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.appointments.Cancel(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[appointmentResponse]{
		Data:    toAppointmentResponse(a),
		Message: "appointment cancelled",
	})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	d, err := h.appointments.Get(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toAppointmentDetailResponse(d))
}

func (h *Handler) MyAppointments(c *gin.Context) {
	res, err := h.appointments.ListForPatient(c.Request.Context(), actorFrom(c).ID,
		parseQueryInt(c, "page", 1), parseQueryInt(c, "limit", 10))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPagedAppointments(res))
}

func (h *Handler) AdminListAppointments(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 10),
	}
	if raw := c.Query("status"); raw != "" {
		s := appointment.Status(raw)
		q.Status = &s
	}
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidInput, "date must be YYYY-MM-DD")
			return
		}
		q.Date = &d
	}
	for key, dst := range map[string]**uuid.UUID{"doctor_id": &q.DoctorID, "patient_id": &q.PatientID} {
		if raw := c.Query(key); raw != "" {
			v, err := uuid.Parse(raw)
			if err != nil {
				respondError(c, http.StatusBadRequest, codeInvalidInput, "invalid "+key)
				return
			}
			*dst = &v
		}
	}

	res, err := h.appointments.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPagedAppointments(res))
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	doctorID, err := parseOptionalUUID(c.Query("doctor_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	res, err := h.appointments.CheckAvailability(c.Request.Context(), doctorID, c.Query("datetime"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, availabilityResponse{
		DoctorID:  res.DoctorID,
		StartTime: res.StartTime,
		Available: res.Available,
		Reason:    string(res.Reason),
		Message:   res.Message,
	})
}

func toPagedAppointments(res *appointment.PagedAppointments) pagedResponse[appointmentResponse] {
	items := make([]appointmentResponse, 0, len(res.Appointments))
	for _, d := range res.Appointments {
		items = append(items, toAppointmentDetailResponse(d))
	}
	return pagedResponse[appointmentResponse]{
		Items:      items,
		Total:      res.TotalCount,
		Page:       res.Page,
		Limit:      res.PageSize,
		TotalPages: res.TotalPages,
	}
}
