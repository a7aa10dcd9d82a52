package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"thirdcoast.systems/mediagrab/pkg/utils/format"
)

type Config struct {
	// WebServer Configuration
	WebServerPort      int     `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`
	WebServerBodyLimit string  `mapstructure:"WEBSERVER_BODY_LIMIT" validate:"required"`
	WebServerRateLimit float64 `mapstructure:"WEBSERVER_RATE_LIMIT" validate:"gte=0"`

	// Staging Configuration
	StagingDir string `mapstructure:"STAGING_DIR" validate:"required"`

	// Toolchain Configuration
	YtdlpPath           string `mapstructure:"YTDLP_PATH" validate:"required"`
	YtdlpAutoUpdate     bool   `mapstructure:"YTDLP_AUTO_UPDATE"`
	FFmpegLocation      string `mapstructure:"FFMPEG_LOCATION"`
	ToolchainSearchRoot string `mapstructure:"TOOLCHAIN_SEARCH_ROOT"`

	// Download Configuration
	DownloadMaxFilesize string `mapstructure:"DOWNLOAD_MAX_FILESIZE"`

	// MaxFilesizeBytes is DownloadMaxFilesize parsed; 0 means unlimited.
	MaxFilesizeBytes int64 `mapstructure:"-"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" && tag != "-" {
			viper.BindEnv(tag)
		}
	}
	slog.Debug("Environment variables bound", "fields", typ.NumField())
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 5000)
	viper.SetDefault("WEBSERVER_BODY_LIMIT", "2M")
	viper.SetDefault("WEBSERVER_RATE_LIMIT", 0)
	viper.SetDefault("STAGING_DIR", "downloads")
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("YTDLP_AUTO_UPDATE", false)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if _, err := format.ParseBytes(cfg.WebServerBodyLimit); err != nil {
		return nil, fmt.Errorf("validate config: WEBSERVER_BODY_LIMIT: %w", err)
	}

	maxSize, err := format.ParseBytes(cfg.DownloadMaxFilesize)
	if err != nil {
		return nil, fmt.Errorf("validate config: DOWNLOAD_MAX_FILESIZE: %w", err)
	}
	cfg.MaxFilesizeBytes = maxSize

	return &cfg, nil
}
