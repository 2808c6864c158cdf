package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// RoleAdmin is accepted by the admin API.
	RoleAdmin = "ADMIN"
	// RoleApplicant is accepted by the applicant API.
	RoleApplicant = "APPLICANT"
)

// AdminTokenPayload captures the data available when minting a JWT.
type AdminTokenPayload struct {
	AdminID uuid.UUID
	Role    string
	JTI     string
}

// AdminClaims is the verified token issued by the external auth service.
// The admin id travels in the registered subject claim.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminID parses the subject claim.
func (c *AdminClaims) AdminID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
