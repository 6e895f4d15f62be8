package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	// PublicBaseURL is the externally reachable base for public object
	// URLs. Defaults to <endpoint>/<bucket> (path-style) when empty.
	PublicBaseURL string `mapstructure:"public_base_url"`
	UseSSL        bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AuthConfig defines authentication behavior toggles.
type AuthConfig struct {
	// RequireEmailVerification defers user/trainer profile rows until
	// the account's email address has been confirmed.
	RequireEmailVerification bool `mapstructure:"require_email_verification"`
	// VerificationTokenTTL bounds how long an emailed confirmation
	// token stays valid.
	VerificationTokenTTL time.Duration `mapstructure:"verification_token_ttl"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: server.address -> SERVER_ADDRESS,
	// database.uri -> DATABASE_URI, jwt.secret -> JWT_SECRET, ...
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.name", "fitlink_coach")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("auth.require_email_verification", false)
	viper.SetDefault("auth.verification_token_ttl", "48h")

	err = viper.ReadInConfig()
	// Config file is optional; everything can come from the environment.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if err = config.Validate(); err != nil {
		return
	}

	return config, nil
}

// Validate reports the required settings that are missing. The server
// refuses to start without the backend endpoint and signing key.
func (c Config) Validate() error {
	var missing []string
	if c.Database.URI == "" {
		missing = append(missing, "database.uri (DATABASE_URI)")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret (JWT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s (set them in config.yaml or the environment and restart)", strings.Join(missing, ", "))
	}
	return nil
}
