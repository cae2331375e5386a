package v1

import (
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListDoctors(c *gin.Context) {
	ds, err := h.doctors.List(c.Request.Context(), c.Query("specialty"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDoctorResponses(ds))
}

func (h *Handler) ListAvailableDoctors(c *gin.Context) {
	ds, err := h.doctors.ListAvailable(c.Request.Context(), c.Query("specialty"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDoctorResponses(ds))
}

func (h *Handler) ListSpecialties(c *gin.Context) {
	specialties, err := h.doctors.ListSpecialties(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, specialties)
}

func (h *Handler) AdminListDoctors(c *gin.Context) {
	res, err := h.doctors.Search(c.Request.Context(), &doctor.ListDoctorsQuery{
		Specialty: c.Query("specialty"),
		Search:    c.Query("search"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 10),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]doctorResponse, 0, len(res.Doctors))
	for _, s := range res.Doctors {
		dr := toDoctorResponse(&s.Doctor)
		total := s.TotalAppointments
		dr.TotalAppointments = &total
		items = append(items, dr)
	}
	respondOK(c, pagedResponse[doctorResponse]{
		Items:      items,
		Total:      res.TotalCount,
		Page:       res.Page,
		Limit:      res.PageSize,
		TotalPages: res.TotalPages,
	})
}

func (h *Handler) AdminDoctorsForSelect(c *gin.Context) {
	ds, err := h.doctors.ListForSelect(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDoctorResponses(ds))
}

func (h *Handler) AdminCreateDoctor(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.doctors.Create(c.Request.Context(), &doctor.CreateDoctorCommand{
		Name:      req.Name,
		Specialty: req.Specialty,
		Email:     req.Email,
		Phone:     req.Phone,
	}, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toDoctorResponse(d))
}

func (h *Handler) AdminUpdateDoctor(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.doctors.Update(c.Request.Context(), id, &doctor.UpdateDoctorCommand{
		Name:      req.Name,
		Specialty: req.Specialty,
		Email:     req.Email,
		Phone:     req.Phone,
	}, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDoctorResponse(d))
}
