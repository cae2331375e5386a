package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/report"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

const (
	codeInvalidInput = string(appointment.KindInvalidInput)
	codeNotFound     = string(appointment.KindNotFound)
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps service and domain errors to HTTP. Unmapped
// errors are attached to the context for the access log and answered
// with a generic 500.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    codeInvalidInput,
			Details: validErr.Fields,
		})
		return
	}

	var rejection *appointment.Rejection
	if errors.As(err, &rejection) {
		status := http.StatusBadRequest
		if rejection.Kind == appointment.KindNotFound {
			status = http.StatusNotFound
		}
		respondError(c, status, string(rejection.Kind), rejection.Reason)
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, domain.ErrAdminNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, err.Error())

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, doctor.ErrDoctorAlreadyExists),
		errors.Is(err, domain.ErrAdminAlreadyExists):
		respondError(c, http.StatusBadRequest, "DUPLICATE", err.Error())

	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		respondError(c, http.StatusBadRequest, "INVALID_TRANSITION", err.Error())

	case errors.Is(err, patient.ErrPatientInactive),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, patient.ErrInvalidBirthDate),
		errors.Is(err, doctor.ErrSpecialtyRequired),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, service.ErrUnknownReport):
		respondError(c, http.StatusBadRequest, codeInvalidInput, err.Error())

	case errors.Is(err, appointment.ErrConcurrentModification):
		respondError(c, http.StatusConflict, "CONCURRENT_UPDATE", err.Error())

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "access denied")

	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")

	case errors.Is(err, service.ErrAccountInactive):
		respondError(c, http.StatusUnauthorized, "ACCOUNT_INACTIVE", "account is inactive")

	case errors.Is(err, service.ErrAccountLocked):
		respondError(c, http.StatusTooManyRequests, "ACCOUNT_LOCKED", "account temporarily locked")

	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid request",
				Code:    codeInvalidInput,
				Details: formatValidationErrors(verrs),
			})
			return false
		}
		respondError(c, http.StatusBadRequest, codeInvalidInput, "invalid request: malformed JSON body")
		return false
	}
	return true
}

func formatValidationErrors(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := snakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "email":
			out = append(out, field+" must be a valid email")
		case "min":
			out = append(out, field+" must be at least "+fe.Param()+" characters")
		case "oneof":
			out = append(out, field+" must be one of: "+strings.Join(strings.Fields(fe.Param()), ", "))
		default:
			out = append(out, field+" is invalid")
		}
	}
	return out
}

// snakeCase turns a Go field name such as FirstName into first_name.
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, codeInvalidInput, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID parses a body or query id. Empty yields uuid.Nil so the
// slot validator reports the missing field.
func parseOptionalUUID(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, appointment.Reject(appointment.KindInvalidInput, "invalid id %q", raw)
	}
	return id, nil
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
