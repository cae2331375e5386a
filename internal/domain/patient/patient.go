package patient

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName string     `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string     `gorm:"column:last_name;type:varchar(100);not null"`
	BirthDate *time.Time `gorm:"column:birth_date;type:date"`
	Gender    Gender     `gorm:"column:gender;type:varchar(1)"`
	Phone     string     `gorm:"column:phone;type:varchar(20);not null"`
	Email     string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`

	PasswordHash string               `gorm:"column:password_hash;type:varchar(255);not null"`
	Status       domain.AccountStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index"`

	domain.LoginState
}

func (Patient) TableName() string {
	return "clinic.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) IsActive() bool {
	return p.Status == domain.AccountActive
}

func (p *Patient) Deactivate() error {
	if !p.IsActive() {
		return ErrPatientInactive
	}
	p.Status = domain.AccountInactive
	return nil
}

type RegisterPatientCommand struct {
	FirstName string
	LastName  string
	BirthDate *time.Time
	Gender    Gender
	Phone     string
	Email     string
	Password  string
}

type UpdatePatientCommand struct {
	FirstName *string
	LastName  *string
	BirthDate *time.Time
	Gender    *Gender
	Phone     *string
	Email     *string
}

// Summary is a patient row in the admin listing.
type Summary struct {
	Patient
	TotalAppointments int64 `gorm:"column:total_appointments"`
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	Search   string // Matches name, email or phone
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Summary
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
