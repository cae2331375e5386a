package v1

import (
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/gin-gonic/gin"
)

func (h *Handler) RegisterPatient(c *gin.Context) {
	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	birthDate, err := h.parseDate(req.BirthDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	p, err := h.patients.Register(c.Request.Context(), &patient.RegisterPatientCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: birthDate,
		Gender:    patient.Gender(req.Gender),
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
	}, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toPatientResponse(p))
}

func (h *Handler) PatientLogin(c *gin.Context) {
	var req patientLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.auth.PatientLogin(c.Request.Context(), req.Email, req.Password, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.auth.AdminLogin(c.Request.Context(), req.Username, req.Password, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}
