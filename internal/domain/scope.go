package domain

// Admin roles see every territory; everyone else is scoped.
const (
	RoleAdmin        = "admin"
	RoleCoordinator  = "coordinator"
	RoleProfessional = "professional"
)

// Scope is the caller identity consumed by this service. Claims issuance
// lives in the external identity provider; here the triple is opaque.
type Scope struct {
	Role        string
	Territories []string
	Email       string
}

// IsAdmin reports whether the caller sees all territories.
func (s Scope) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// AllowsTerritory reports whether the caller may read or write records in
// the given territory.
func (s Scope) AllowsTerritory(territory string) bool {
	if s.IsAdmin() {
		return true
	}
	for _, t := range s.Territories {
		if t == territory {
			return true
		}
	}
	return false
}
