package service

import (
	"context"
	"crypto/subtle"

	"github.com/vantive/scansight/internal/domain"
)

// StaticTokenValidator maps one configured bearer token to one tenant.
// Single-tenant deployments and local development run with this; anything
// multi-tenant sits behind a gateway that resolves tenants upstream.
type StaticTokenValidator struct {
	token    string
	tenantID string
}

// NewStaticTokenValidator creates a new StaticTokenValidator instance
func NewStaticTokenValidator(token, tenantID string) *StaticTokenValidator {
	return &StaticTokenValidator{token: token, tenantID: tenantID}
}

// ValidateToken returns the tenant ID when the token matches.
func (v *StaticTokenValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	if v.token == "" || v.tenantID == "" {
		return "", domain.NewDomainError(domain.ErrCodeUnauthorized, "token auth is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(v.token), []byte(token)) != 1 {
		return "", domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid token")
	}
	return v.tenantID, nil
}
