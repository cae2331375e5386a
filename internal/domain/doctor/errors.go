package doctor

import "errors"

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrDoctorAlreadyExists = errors.New("a doctor with this email already exists")
	ErrSpecialtyRequired   = errors.New("specialty is required")
)
