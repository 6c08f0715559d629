package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role labels known to the reader API.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// legacyRolePrefix is accepted on input so authority strings minted by older
// clients ("ROLE_ADMIN") normalise to the canonical label.
const legacyRolePrefix = "ROLE_"

// roleSeparator joins the role set inside the authorities claim.
const roleSeparator = ","

// Claims is the signed payload carried by every access token.
//
// sub holds the nickname, userId the numeric principal id and authorities the
// comma-joined role set as it was at issuance time.
type Claims struct {
	UserID      int64  `json:"userId"`
	Authorities string `json:"authorities"`
	jwt.RegisteredClaims
}

// NormalizeRole upper-cases a role label and strips the legacy ROLE_ prefix.
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, legacyRolePrefix)
}

// IsKnownRole reports whether role is one of the labels the API grants.
func IsKnownRole(role string) bool {
	switch NormalizeRole(role) {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// JoinRoles serialises a role set into the authorities claim format.
// Labels are normalised and duplicates dropped, first occurrence wins.
func JoinRoles(roles []string) string {
	return strings.Join(normalizeRoles(roles), roleSeparator)
}

// SplitRoles parses an authorities claim back into a role set.
// Empty segments are ignored, so "" yields an empty set.
func SplitRoles(authorities string) []string {
	return normalizeRoles(strings.Split(authorities, roleSeparator))
}

func normalizeRoles(roles []string) []string {
	result := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = NormalizeRole(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
	}
	return result
}
