package domain

import "time"

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleCoordinator Role = "COORDINATOR"
	RoleVolunteer   Role = "VOLUNTEER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoordinator, RoleVolunteer:
		return true
	}
	return false
}

// IsSupervisor reports whether the role oversees every visit regardless of assignment.
func (r Role) IsSupervisor() bool {
	return r == RoleAdmin || r == RoleCoordinator
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the authenticated caller, injected by the auth middleware.
type Actor struct {
	ID   string
	Role Role
}
