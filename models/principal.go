package models

// Scope tags authorizing access to operations
const (
	ScopeAdmin = "admin"
	ScopeUser  = "user"
)

// Principal is the authenticated context attached to a request: the user
// (sanitized), the tenant it belongs to, and the derived capability set.
// Principals are derived per request and never persisted.
type Principal struct {
	User     *User    `json:"user"`
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
}

// NewPrincipal derives a Principal from a sanitized user. Admins receive
// both the admin and user scopes; everyone else receives the user scope.
func NewPrincipal(user *User) *Principal {
	scopes := []string{ScopeUser}
	if user.IsAdmin() {
		scopes = []string{ScopeAdmin, ScopeUser}
	}
	return &Principal{
		User:     user,
		TenantID: user.TenantID,
		Scopes:   scopes,
	}
}

// HasScope returns true if the capability set contains the given tag
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the principal carries the admin scope
func (p *Principal) IsAdmin() bool {
	return p.HasScope(ScopeAdmin)
}
