package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEnvironment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"development", EnvDevelopment},
		{"STAGING", EnvStaging},
		{" Production ", EnvProduction},
		{"prod", EnvProduction},
		{"test", EnvTest},
		{"", EnvDevelopment},
		{"qa-cluster", EnvDevelopment},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEnvironment(tt.in))
		})
	}
}

func TestProductionLike(t *testing.T) {
	assert.True(t, ProductionLike("production"))
	assert.True(t, ProductionLike("Staging"))
	assert.False(t, ProductionLike("development"))
	assert.False(t, ProductionLike("test"))
	assert.False(t, ProductionLike(""))
}
