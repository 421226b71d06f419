package testutil

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tyotrack/tyotrack-backend/pkg/actor"
	"github.com/tyotrack/tyotrack-backend/pkg/auth"
	"github.com/tyotrack/tyotrack-backend/pkg/permissions"
)

// TestJWTSecret signs tokens minted by fixtures.
const TestJWTSecret = "test-secret-for-handlers"

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Actor creates an actor of the given role in the test tenant
func (f *FixtureFactory) Actor(role string) *actor.Actor {
	seq := f.nextSeq()
	return &actor.Actor{
		ID:          uuid.New().String(),
		Name:        fmt.Sprintf("Test%d User", seq),
		Email:       fmt.Sprintf("user%d@test.tyotrack.fi", seq),
		CompanyID:   TestTenantID,
		Role:        role,
		Permissions: permissions.ForRole(role),
	}
}

// Employee is Actor(RoleEmployee)
func (f *FixtureFactory) Employee() *actor.Actor {
	return f.Actor(permissions.RoleEmployee)
}

// Admin is Actor(RoleAdmin)
func (f *FixtureFactory) Admin() *actor.Actor {
	return f.Actor(permissions.RoleAdmin)
}

// Token signs an access token for a in the test tenant with TestJWTSecret.
func (f *FixtureFactory) Token(a *actor.Actor, opts ...func(*auth.Claims)) string {
	now := time.Now()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email:        a.Email,
		Name:         a.Name,
		Role:         a.Role,
		Permissions:  a.Permissions,
		TenantID:     a.CompanyID,
		TenantSlug:   "test-tenant",
		TenantSchema: TestTenantSchema,
	}
	for _, opt := range opts {
		opt(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Expired makes a token already expired
func Expired() func(*auth.Claims) {
	return func(c *auth.Claims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	}
}
