// Package config loads server settings from defaults, an optional YAML file
// and INVENTAR_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/erazemk/inventar/internal/blob"
)

// EnvPrefix prefixes environment overrides, e.g. INVENTAR_BLOB_DRIVER.
const EnvPrefix = "INVENTAR"

// Config holds every setting.
type Config struct {
	DB   string `mapstructure:"db"`
	Addr string `mapstructure:"addr"`
	Log  struct {
		File    string `mapstructure:"file"`
		Level   string `mapstructure:"level"`
		Console bool   `mapstructure:"console"`
	} `mapstructure:"log"`
	Admin struct {
		Email string `mapstructure:"email"`
		Name  string `mapstructure:"name"`
	} `mapstructure:"admin"`
	Blob struct {
		Driver    string `mapstructure:"driver"`
		FSRoot    string `mapstructure:"fs_root"`
		PublicURL string `mapstructure:"public_url"`
		S3        struct {
			Bucket    string `mapstructure:"bucket"`
			Region    string `mapstructure:"region"`
			Endpoint  string `mapstructure:"endpoint"`
			PathStyle bool   `mapstructure:"path_style"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
		} `mapstructure:"s3"`
	} `mapstructure:"blob"`
	HTTP struct {
		RateLimit float64 `mapstructure:"rate_limit"`
		RateBurst int     `mapstructure:"rate_burst"`
	} `mapstructure:"http"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "inventar.sqlite3")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
	v.SetDefault("admin.email", "admin@localhost")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("blob.driver", string(blob.DriverFS))
	v.SetDefault("blob.fs_root", "files")
	v.SetDefault("blob.public_url", "")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("blob.s3.access_key", "")
	v.SetDefault("blob.s3.secret_key", "")
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
}

// Load reads configuration. file may be empty. overrides, typically from
// command line flags, win over everything else.
func Load(file string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB == "" {
		return errors.New("db path must not be empty")
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFS:
		if c.Blob.FSRoot == "" {
			return errors.New("blob.fs_root is required for the fs driver")
		}
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("blob.s3.bucket is required for the s3 driver")
		}
	case blob.DriverMemory:
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
		return errors.New("http rate limit and burst must not be negative")
	}
	return nil
}

// BlobConfig returns the blob store settings.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver:    blob.Driver(c.Blob.Driver),
		FSRoot:    c.Blob.FSRoot,
		PublicURL: c.Blob.PublicURL,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			PathStyle:       c.Blob.S3.PathStyle,
			AccessKeyID:     c.Blob.S3.AccessKey,
			SecretAccessKey: c.Blob.S3.SecretKey,
		},
	}
}
