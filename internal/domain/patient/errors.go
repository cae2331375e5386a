package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("a patient with this email is already registered")
	ErrPatientInactive      = errors.New("patient is already inactive")
	ErrInvalidGender        = errors.New("invalid gender value")
	ErrInvalidBirthDate     = errors.New("birth date cannot be in the future")
)
