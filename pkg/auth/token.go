// Package auth verifies bearer tokens issued by the identity provider.
// Tokens are never minted here.
package auth

import (
	stderrors "errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tyotrack/tyotrack-backend/pkg/actor"
	"github.com/tyotrack/tyotrack-backend/pkg/config"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

// Claims represents the access token claims
type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`

	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}

// Actor converts the claims into the request actor.
func (c *Claims) Actor() *actor.Actor {
	return &actor.Actor{
		ID:          c.Subject,
		Name:        c.Name,
		Email:       c.Email,
		CompanyID:   c.TenantID,
		Role:        c.Role,
		Permissions: c.Permissions,
	}
}

// Tenant returns the company the token was issued for.
func (c *Claims) Tenant() tenant.Info {
	schema := c.TenantSchema
	if schema == "" && c.TenantSlug != "" {
		schema = tenant.SchemaForSlug(c.TenantSlug)
	}
	return tenant.Info{ID: c.TenantID, Slug: c.TenantSlug, Schema: schema}
}

// Verifier validates HS256 access tokens
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier from the JWT configuration
func NewVerifier(cfg *config.JWTConfig) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// Verify parses tokenString and returns its claims. Tokens without a
// subject or tenant are rejected.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}

	if claims.Subject == "" || claims.TenantID == "" {
		return nil, errors.TokenInvalid()
	}
	if !tenant.ValidSchema(claims.Tenant().Schema) {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}
