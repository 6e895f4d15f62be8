package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Address: ":8080"},
		Database: DatabaseConfig{URI: "mongodb://localhost:27017", Name: "fitlink_coach"},
		JWT:      JWTConfig{Secret: "secret"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateNamesMissingSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URI = ""
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	require.Error(t, err)
	// The message must point the operator at both ways to set each value.
	require.Contains(t, err.Error(), "database.uri (DATABASE_URI)")
	require.Contains(t, err.Error(), "jwt.secret (JWT_SECRET)")
}

func TestValidateMissingSecretOnly(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.NotContains(t, err.Error(), "database.uri")
	require.Contains(t, err.Error(), "jwt.secret")
}
