package auth

import (
	"slices"
	"strings"
)

// Principal is the caller identity handed to page services. It is passed
// explicitly instead of being read from ambient state.
type Principal struct {
	MemberID string
	Token    string
	Roles    []string
}

// Anonymous returns a principal with no identity.
func Anonymous() Principal { return Principal{} }

// IsAuthenticated reports whether a verified token backs the principal.
func (p Principal) IsAuthenticated() bool {
	return strings.TrimSpace(p.MemberID) != "" && p.Token != ""
}

// HasAccess reports whether the principal may edit or delete content owned
// by memberID. Admins may access everything.
func (p Principal) HasAccess(memberID string) bool {
	if !p.IsAuthenticated() {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return strings.TrimSpace(memberID) != "" && strings.TrimSpace(memberID) == strings.TrimSpace(p.MemberID)
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.IsAuthenticated() && slices.Contains(p.Roles, RoleAdmin)
}

// AuthorizationHeader is the value forwarded upstream, empty when anonymous.
func (p Principal) AuthorizationHeader() string {
	if p.Token == "" {
		return ""
	}
	return "Bearer " + p.Token
}

// RoleAdmin grants access to every member's content.
const RoleAdmin = "admin"
