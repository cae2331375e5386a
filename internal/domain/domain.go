package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RolePatient:
		return true
	}
	return false
}

const (
	MaxFailedLogins = 5
	LoginLockout    = 15 * time.Minute
)

// LoginState tracks failed attempts for account lockout. Embedded in every
// account that can log in.
type LoginState struct {
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil      *time.Time `gorm:"column:locked_until"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (s *LoginState) IsLocked() bool {
	return s.LockedUntil != nil && time.Now().Before(*s.LockedUntil)
}

// RecordLogin updates the state after an attempt at now. The account locks
// for LoginLockout once MaxFailedLogins consecutive attempts fail.
func (s *LoginState) RecordLogin(success bool, now time.Time) {
	if success {
		s.FailedLoginCount = 0
		s.LockedUntil = nil
		s.LastLoginAt = &now
		return
	}
	s.FailedLoginCount++
	if s.FailedLoginCount >= MaxFailedLogins {
		until := now.Add(LoginLockout)
		s.LockedUntil = &until
		s.FailedLoginCount = 0
	}
}

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

type Admin struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Username     string        `gorm:"column:username;type:varchar(50);uniqueIndex;not null"`
	PasswordHash string        `gorm:"column:password_hash;type:varchar(255);not null"`
	FullName     string        `gorm:"column:full_name;type:varchar(150);not null"`
	Email        string        `gorm:"column:email;type:varchar(255)"`
	Role         Role          `gorm:"column:role;type:varchar(30);not null;default:'admin'"`
	Status       AccountStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index"`

	LoginState
}

func (Admin) TableName() string {
	return "auth.admins"
}

func (a *Admin) IsActive() bool {
	return a.Status == AccountActive
}

type ActivityAction string

const (
	ActionCreate ActivityAction = "create"
	ActionRead   ActivityAction = "read"
	ActionUpdate ActivityAction = "update"
	ActionCancel ActivityAction = "cancel"
	ActionDelete ActivityAction = "delete"
	ActionLogin  ActivityAction = "login"
)

// ActivityLog is a document in the activity store. Type is
// "<resource>.<action>", e.g. "appointment.create".
type ActivityLog struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Type       string    `bson:"type" json:"type"`
	OccurredAt time.Time `bson:"timestamp" json:"timestamp"`

	// Who
	ActorID   string `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorRole Role   `bson:"actor_role,omitempty" json:"actor_role,omitempty"`
	IPAddress string `bson:"ip_address,omitempty" json:"ip_address,omitempty"`

	// What
	Action       ActivityAction `bson:"action" json:"action"`
	ResourceType string         `bson:"resource_type" json:"resource_type"`
	ResourceID   string         `bson:"resource_id,omitempty" json:"resource_id,omitempty"`

	RequestID string         `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Details   map[string]any `bson:"details,omitempty" json:"details,omitempty"`
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

// Claims identify the caller. For patients UserID is the patient id.
type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// Actor is the request-scoped caller passed into services.
type Actor struct {
	ID        uuid.UUID
	Role      Role
	IP        string
	RequestID string
}

func (a Actor) IsPatient() bool {
	return a.Role == RolePatient
}
