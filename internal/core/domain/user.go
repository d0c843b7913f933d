package domain

// Role is the authorization class of a portal user. It determines which
// routes may be activated and which dashboard is canonical for the user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the three known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// User models an authenticated actor as issued by the backend. The gateway
// never mutates a User; it is replaced wholesale on re-login.
type User struct {
	ID        string `json:"id" bson:"id"`
	Email     string `json:"email" bson:"email"`
	Role      Role   `json:"role" bson:"role"`
	FirstName string `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" bson:"last_name,omitempty"`
}

// Valid reports whether u carries the minimum identity the gateway requires.
func (u User) Valid() bool {
	return u.ID != "" && u.Email != "" && u.Role.Valid()
}
