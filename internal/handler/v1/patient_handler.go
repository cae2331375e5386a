package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) GetMyProfile(c *gin.Context) {
	actor := actorFrom(c)
	p, err := h.patients.Get(c.Request.Context(), actor.ID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p))
}

func (h *Handler) UpdateMyProfile(c *gin.Context) {
	h.updatePatient(c, actorFrom(c).ID)
}

func (h *Handler) AdminUpdatePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	h.updatePatient(c, id)
}

func (h *Handler) updatePatient(c *gin.Context, id uuid.UUID) {
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	birthDate, err := h.parseDate(req.BirthDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	cmd := &patient.UpdatePatientCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: birthDate,
		Phone:     req.Phone,
		Email:     req.Email,
	}
	if req.Gender != nil {
		g := patient.Gender(*req.Gender)
		cmd.Gender = &g
	}

	p, err := h.patients.Update(c.Request.Context(), id, cmd, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p))
}

func (h *Handler) AdminDeactivatePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.patients.Deactivate(c.Request.Context(), id, actorFrom(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[any]{Message: "patient deactivated"})
}

func (h *Handler) AdminListPatients(c *gin.Context) {
	res, err := h.patients.List(c.Request.Context(), &patient.ListPatientsQuery{
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 10),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]patientResponse, 0, len(res.Patients))
	for _, s := range res.Patients {
		pr := toPatientResponse(&s.Patient)
		total := s.TotalAppointments
		pr.TotalAppointments = &total
		items = append(items, pr)
	}
	respondOK(c, pagedResponse[patientResponse]{
		Items:      items,
		Total:      res.TotalCount,
		Page:       res.Page,
		Limit:      res.PageSize,
		TotalPages: res.TotalPages,
	})
}

func (h *Handler) AdminPatientsForSelect(c *gin.Context) {
	ps, err := h.patients.ListForSelect(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	items := make([]patientResponse, 0, len(ps))
	for _, p := range ps {
		items = append(items, toPatientResponse(p))
	}
	respondOK(c, items)
}

// parseDate reads an optional YYYY-MM-DD date.
func (h *Handler) parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, *raw, h.loc)
	if err != nil {
		return nil, &service.ValidationError{Fields: []string{"birth_date must be YYYY-MM-DD"}}
	}
	return &t, nil
}
