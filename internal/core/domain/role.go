package domain

// Reserved role names created by seeding.
const (
	RoleAdministrator = "Administrator"
	RoleGuest         = "Guest"
)

// Role is a named permission grouping.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func hasRole(roles []Role, name string) bool {
	for _, r := range roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
