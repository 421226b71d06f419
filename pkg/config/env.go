package config

import "strings"

// Deployment environments. Staging and production are held to the same
// configuration requirements.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// NormalizeEnvironment lower-cases env and maps unknown or empty values to
// development.
func NormalizeEnvironment(env string) string {
	switch e := strings.ToLower(strings.TrimSpace(env)); e {
	case EnvDevelopment, EnvTest, EnvStaging, EnvProduction:
		return e
	case "prod":
		return EnvProduction
	case "stage":
		return EnvStaging
	default:
		return EnvDevelopment
	}
}

// ProductionLike reports whether env must fail fast on missing secrets and
// local endpoints.
func ProductionLike(env string) bool {
	env = NormalizeEnvironment(env)
	return env == EnvStaging || env == EnvProduction
}
