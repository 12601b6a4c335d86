// Package config loads service configuration from an optional TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonathan/mathmotion/internal/llm"
	"github.com/jonathan/mathmotion/internal/publish"
	"github.com/jonathan/mathmotion/internal/render"
)

// Config is the complete service configuration. Components receive the parts they need from it.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Render   RenderConfig   `mapstructure:"render"`
	Media    MediaConfig    `mapstructure:"media"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port     int    `mapstructure:"port" env:"PORT" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"log_level" env:"LOG_LEVEL"`
}

// LLMConfig configures the script generator's model client.
type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key" env:"GEMINI_API_KEY" validate:"required"`
	Model             string        `mapstructure:"model" env:"GEMINI_MODEL" validate:"required"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" env:"LLM_REQUESTS_PER_MINUTE" validate:"min=0"`
	Timeout           time.Duration `mapstructure:"timeout" env:"LLM_TIMEOUT"`
}

// RenderConfig configures the render subprocess.
type RenderConfig struct {
	Command     string        `mapstructure:"command" env:"RENDER_COMMAND" validate:"required"`
	Args        []string      `mapstructure:"args" env:"RENDER_ARGS"`
	Timeout     time.Duration `mapstructure:"timeout" env:"RENDER_TIMEOUT"`
	Grace       time.Duration `mapstructure:"grace" env:"RENDER_GRACE"`
	WorkDir     string        `mapstructure:"work_dir" env:"WORK_DIR" validate:"required"`
	FFprobePath string        `mapstructure:"ffprobe_path" env:"FFPROBE_PATH"`
}

// MediaConfig selects the media host and its credentials.
type MediaConfig struct {
	Host                string        `mapstructure:"host" env:"MEDIA_HOST" validate:"oneof=cloudinary gcs"`
	Folder              string        `mapstructure:"folder" env:"MEDIA_FOLDER" validate:"required"`
	PublishTimeout      time.Duration `mapstructure:"publish_timeout" env:"PUBLISH_TIMEOUT" validate:"min=0"`
	CloudinaryCloudName string        `mapstructure:"cloudinary_cloud_name" env:"CLOUDINARY_CLOUD_NAME" validate:"required_if=Host cloudinary"`
	CloudinaryAPIKey    string        `mapstructure:"cloudinary_api_key" env:"CLOUDINARY_API_KEY" validate:"required_if=Host cloudinary"`
	CloudinaryAPISecret string        `mapstructure:"cloudinary_api_secret" env:"CLOUDINARY_API_SECRET" validate:"required_if=Host cloudinary"`
	GCSBucket           string        `mapstructure:"gcs_bucket" env:"GCS_BUCKET" validate:"required_if=Host gcs"`
}

// DatabaseConfig holds the datastore location.
type DatabaseConfig struct {
	URL string `mapstructure:"url" env:"DATABASE_URL" validate:"required"`
}

// SessionConfig holds the shared secret used to verify session tokens.
type SessionConfig struct {
	Secret   string        `mapstructure:"secret" env:"SESSION_SECRET" validate:"required"`
	Required bool          `mapstructure:"required" env:"SESSION_REQUIRED"`
	MaxAge   time.Duration `mapstructure:"max_age" env:"SESSION_MAX_AGE"`
}

// MissingError lists every required environment variable that was not set.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Vars, ", "))
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, LogLevel: "info"},
		LLM: LLMConfig{
			Model:             llm.DefaultModel,
			RequestsPerMinute: 30,
			Timeout:           60 * time.Second,
		},
		Render: RenderConfig{
			Command:     render.DefaultCommand,
			Args:        append([]string(nil), render.DefaultArgs...),
			Timeout:     render.DefaultTimeout,
			Grace:       render.DefaultGrace,
			WorkDir:     filepath.Join(os.TempDir(), "mathmotion"),
			FFprobePath: "ffprobe",
		},
		Media: MediaConfig{
			Host:           publish.HostCloudinary,
			Folder:         publish.DefaultFolder,
			PublishTimeout: publish.DefaultTimeout,
		},
		Session: SessionConfig{MaxAge: 24 * time.Hour},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if any), then the environment.
// All missing required variables are reported together.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that need only part of the configuration.
func Read(path string) (*Config, error) {
	v := newViper(Default())
	if path != "" {
		var file map[string]any
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := v.MergeConfigMap(file); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		fieldsHook,
	))
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}
	sort.Strings(missing)
	return &MissingError{Vars: missing}
}

// LLMClientConfig converts to the llm package configuration.
func (c *Config) LLMClientConfig(systemInstruction string) *llm.Config {
	out := llm.DefaultConfig().WithModel(c.LLM.Model)
	out.RequestsPerMinute = c.LLM.RequestsPerMinute
	out.SystemInstruction = systemInstruction
	return out
}

// RenderInvokerConfig converts to the render package configuration.
func (c *Config) RenderInvokerConfig() render.Config {
	return render.Config{
		Command:     c.Render.Command,
		Args:        c.Render.Args,
		Timeout:     c.Render.Timeout,
		Grace:       c.Render.Grace,
		WorkDir:     c.Render.WorkDir,
		FFprobePath: c.Render.FFprobePath,
	}
}

// PublisherConfig converts to the publish package configuration.
func (c *Config) PublisherConfig() publish.Config {
	return publish.Config{
		Host:                c.Media.Host,
		Folder:              c.Media.Folder,
		Timeout:             c.Media.PublishTimeout,
		CloudinaryCloudName: c.Media.CloudinaryCloudName,
		CloudinaryAPIKey:    c.Media.CloudinaryAPIKey,
		CloudinaryAPISecret: c.Media.CloudinaryAPISecret,
		GCSBucket:           c.Media.GCSBucket,
	}
}

// newViper registers every field's default and binds its env tag to the field's key.
// Empty environment variables count as unset.
func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	bindStruct(v, reflect.ValueOf(defaults).Elem(), "")
	return v
}

func bindStruct(v *viper.Viper, val reflect.Value, prefix string) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := prefix + field.Tag.Get("mapstructure")
		if field.Type.Kind() == reflect.Struct {
			bindStruct(v, val.Field(i), key+".")
			continue
		}
		v.SetDefault(key, val.Field(i).Interface())
		if env := field.Tag.Get("env"); env != "" {
			_ = v.BindEnv(key, env)
		}
	}
}

// fieldsHook splits space-separated strings, as RENDER_ARGS arrives, into string slices.
func fieldsHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	return strings.Fields(data.(string)), nil
}
