package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "beta", cfg.SUNAT.Environment)
	assert.Equal(t, "mock", cfg.SUNAT.DefaultProvider)
	assert.Equal(t, 60*time.Second, cfg.SUNAT.Timeout)
	assert.Equal(t, 4, cfg.SUNAT.Workers)
	assert.Equal(t, 30*time.Second, cfg.SUNAT.PollInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_SobrescribeSUNAT(t *testing.T) {
	v := viper.New()
	v.Set("SUNAT_ENVIRONMENT", "PRODUCTION")
	v.Set("SUNAT_DEFAULT_PROVIDER", "OSE")
	v.Set("SUNAT_TIMEOUT", "15")
	v.Set("SUNAT_POLL_INTERVAL", "2m")
	v.Set("SUNAT_WORKERS", "8")
	v.Set("SUNAT_MOCK_FORCE_ERROR_CODE", "2010")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.SUNAT.Environment)
	assert.Equal(t, "ose", cfg.SUNAT.DefaultProvider)
	assert.Equal(t, 15*time.Second, cfg.SUNAT.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.SUNAT.PollInterval)
	assert.Equal(t, 8, cfg.SUNAT.Workers)
	assert.Equal(t, "2010", cfg.SUNAT.MockForceErrorCode)
}

func TestFromViper_AmbienteInvalido(t *testing.T) {
	v := viper.New()
	v.Set("SUNAT_ENVIRONMENT", "qa")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "sunat", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/sunat?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
