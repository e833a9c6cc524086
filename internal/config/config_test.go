package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MERCADOPAGO_ACCESS_TOKEN", "TEST-token")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("ADMIN_API_TOKEN", "")
	t.Setenv("LOG_LEVEL", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.NotEmpty(t, cfg.FrontendURL)
	assert.NotEmpty(t, cfg.BackendURL)
	assert.Empty(t, cfg.AdminToken, "admin token must default to unset")
}

func TestLoadPostgresInferredFromDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/paygate")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage)
}

func TestLoadExplicitOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("FRONTEND_URL", "https://front.example")
	t.Setenv("BACKEND_URL", "https://back.example")
	t.Setenv("ADMIN_API_TOKEN", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://front.example", cfg.FrontendURL)
	assert.Equal(t, "https://back.example", cfg.BackendURL)
	assert.Equal(t, "s3cret", cfg.AdminToken)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing access token", map[string]string{"MERCADOPAGO_ACCESS_TOKEN": ""}},
		{"bad port", map[string]string{"PORT": "not-a-port"}},
		{"port out of range", map[string]string{"PORT": "99999"}},
		{"postgres without dsn", map[string]string{"STORAGE_BACKEND": StoragePostgres}},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "sqlite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
