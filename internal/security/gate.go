package security

import "shreelaxmi/site/internal/models"

// Authorize is the access gate. Admin-only operations require the admin role;
// anything else needs only a valid session.
func Authorize(claims *SessionClaims, required models.Role) bool {
	if claims == nil || claims.UserID == "" || !claims.Role.Valid() {
		return false
	}
	if required == models.RoleAdmin {
		return claims.Role == models.RoleAdmin
	}
	return true
}
