package doctor

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name      string `gorm:"column:name;type:varchar(150);not null;index"`
	Specialty string `gorm:"column:specialty;type:varchar(100);not null;index"`
	Email     string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	Phone     string `gorm:"column:phone;type:varchar(20)"`
}

func (Doctor) TableName() string {
	return "clinic.doctors"
}

type CreateDoctorCommand struct {
	Name      string
	Specialty string
	Email     string
	Phone     string
}

type UpdateDoctorCommand struct {
	Name      *string
	Specialty *string
	Email     *string
	Phone     *string
}

// Summary is a doctor row in the admin listing.
type Summary struct {
	Doctor
	TotalAppointments int64 `gorm:"column:total_appointments"`
}

type ListDoctorsQuery struct {
	Specialty string
	Search    string // Matches name or email
	Page      int
	PageSize  int
}

type PagedDoctors struct {
	Doctors    []*Summary
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
