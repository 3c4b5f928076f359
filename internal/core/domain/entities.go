package domain

// Role represents user role in the system
type Role string

const (
	RoleVisitor Role = "VISITOR"
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADMIN"
)

// Actor is the authenticated identity behind an engine operation.
type Actor struct {
	UserID uint
	Role   Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsOfficer reports whether the actor carries the officer role.
func (a Actor) IsOfficer() bool {
	return a.Role == RoleOfficer
}
