package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderCognito = "cognito"
	ProviderOIDC    = "oidc"
)

// Config is the typed view of configs/config.yml plus environment overrides.
type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	ControlAPI ControlAPIConfig `mapstructure:"control_api"`
	Poll       PollConfig       `mapstructure:"poll"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Session    SessionConfig    `mapstructure:"session"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

type ControlAPIConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// MaxDuration bounds a single poll; 0 polls until the target status or an error.
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

type AuthConfig struct {
	Provider      string     `mapstructure:"provider"`
	Region        string     `mapstructure:"region"`
	UserPoolID    string     `mapstructure:"user_pool_id"`
	ClientID      string     `mapstructure:"client_id"`
	ClientSecret  string     `mapstructure:"client_secret"`
	VerifyIDToken bool       `mapstructure:"verify_id_token"`
	OIDC          OIDCConfig `mapstructure:"oidc"`
}

type OIDCConfig struct {
	Issuer   string `mapstructure:"issuer"`
	TokenURL string `mapstructure:"token_url"`
}

type SessionConfig struct {
	// SigningKey signs panel tokens. Empty means a random key per process.
	SigningKey string        `mapstructure:"signing_key"`
	TTL        time.Duration `mapstructure:"ttl"`
	// ChallengeTTL bounds the time a user has to answer a new-password challenge.
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	// SweepInterval is how often expired sessions are dropped.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type StorageConfig struct {
	// DSN of the SQLite database holding session bookkeeping and event logs.
	DSN string `mapstructure:"dsn"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Issuer returns the OIDC issuer for the configured provider.
// Cognito issuers are derived from region and user pool id.
func (a AuthConfig) Issuer() string {
	if a.Provider == ProviderCognito {
		if a.UserPoolID == "" {
			return ""
		}
		return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", a.CognitoRegion(), a.UserPoolID)
	}
	return a.OIDC.Issuer
}

// CognitoRegion returns the configured region, falling back to the user pool id prefix
// ("sa-east-1_AbCdEf" -> "sa-east-1").
func (a AuthConfig) CognitoRegion() string {
	if a.Region != "" {
		return a.Region
	}
	if i := strings.IndexByte(a.UserPoolID, '_'); i > 0 {
		return a.UserPoolID[:i]
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("control_api.timeout", 10*time.Second)
	v.SetDefault("poll.interval", 5*time.Second)
	v.SetDefault("poll.max_duration", 15*time.Minute)
	v.SetDefault("auth.provider", ProviderCognito)
	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("session.challenge_ttl", 5*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("storage.dsn", ":memory:")
}

// Load reads config.yml from the given directories (first match wins) and applies
// PANEL_* environment overrides. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the deployment pipeline.
	_ = v.BindEnv("auth.user_pool_id", "PANEL_AUTH_USER_POOL_ID", "COGNITO_USER_POOL_ID")
	_ = v.BindEnv("auth.client_id", "PANEL_AUTH_CLIENT_ID", "COGNITO_CLIENT_ID")

	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no sensible default.
func (c *Config) Validate() error {
	if c.ControlAPI.Endpoint == "" {
		return errors.New("control_api.endpoint is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxDuration < 0 {
		return fmt.Errorf("poll.max_duration must not be negative, got %s", c.Poll.MaxDuration)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive, got %s", c.Session.SweepInterval)
	}
	switch c.Auth.Provider {
	case ProviderCognito:
		if c.Auth.ClientID == "" {
			return errors.New("auth.client_id is required for cognito")
		}
		if c.Auth.CognitoRegion() == "" {
			return errors.New("auth.region or auth.user_pool_id is required for cognito")
		}
	case ProviderOIDC:
		if c.Auth.ClientID == "" || c.Auth.OIDC.TokenURL == "" {
			return errors.New("auth.client_id and auth.oidc.token_url are required for oidc")
		}
	default:
		return fmt.Errorf("unknown auth.provider %q", c.Auth.Provider)
	}
	return nil
}
