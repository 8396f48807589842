package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	StoreDir     string `mapstructure:"STORE_DIR"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DDBTable     string `mapstructure:"DDB_TABLE"`

	AWSRegion   string        `mapstructure:"AWS_REGION"`
	AWSEndpoint string        `mapstructure:"AWS_ENDPOINT_URL"`
	S3Bucket    string        `mapstructure:"S3_BUCKET"`
	PresignTTL  time.Duration `mapstructure:"PRESIGN_TTL"`

	Validator         string        `mapstructure:"VALIDATOR"`
	AIURL             string        `mapstructure:"AI_URL"`
	AssistantBaseURL  string        `mapstructure:"ASSISTANT_BASE_URL"`
	AssistantModel    string        `mapstructure:"ASSISTANT_MODEL"`
	AssistantAPIKey   string        `mapstructure:"ASSISTANT_API_KEY"`
	AnthropicAPIKey   string        `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel    string        `mapstructure:"ANTHROPIC_MODEL"`
	ValidationDelay   time.Duration `mapstructure:"VALIDATION_DELAY"`
	ValidationTimeout time.Duration `mapstructure:"VALIDATION_TIMEOUT"`
	AutoValidate      bool          `mapstructure:"AUTO_VALIDATE"`
	ProcessWorkers    int           `mapstructure:"PROCESS_CONCURRENCY"`
	PolicyCatalogPath string        `mapstructure:"POLICY_CATALOG_PATH"`

	AdminKey    string `mapstructure:"ADMIN_KEY"`
	OTelEnabled bool   `mapstructure:"OTEL_ENABLED"`
}

var defaults = map[string]any{
	"ENV":                  "dev",
	"PORT":                 "8080",
	"LOG_LEVEL":            "info",
	"CORS_ALLOWED_ORIGINS": "*",
	"REQUEST_TIMEOUT":      "30s",
	"STORE_BACKEND":        "memory",
	"STORE_DIR":            "./data",
	"DATABASE_URL":         "",
	"DDB_TABLE":            "claimflow",
	"AWS_REGION":           "us-east-1",
	"AWS_ENDPOINT_URL":     "",
	"S3_BUCKET":            "",
	"PRESIGN_TTL":          "15m",
	"VALIDATOR":            "mock",
	"AI_URL":               "",
	"ASSISTANT_BASE_URL":   "",
	"ASSISTANT_MODEL":      "",
	"ASSISTANT_API_KEY":    "",
	"ANTHROPIC_API_KEY":    "",
	"ANTHROPIC_MODEL":      "",
	"VALIDATION_DELAY":     "10s",
	"VALIDATION_TIMEOUT":   "60s",
	"AUTO_VALIDATE":        false,
	"PROCESS_CONCURRENCY":  4,
	"POLICY_CATALOG_PATH":  "",
	"ADMIN_KEY":            "",
	"OTEL_ENABLED":         false,
}

func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile reads path (a missing file is fine) and overlays the environment.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case "memory", "file":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_BACKEND=postgres")
		}
	case "dynamodb":
		if c.DDBTable == "" {
			return fmt.Errorf("DDB_TABLE is required for STORE_BACKEND=dynamodb")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ProcessWorkers < 1 {
		return fmt.Errorf("PROCESS_CONCURRENCY must be at least 1")
	}
	return nil
}
