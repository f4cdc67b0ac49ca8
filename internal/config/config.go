package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Tools     ToolsConfig
	Player    PlayerConfig
	Extractor ExtractorConfig
}

// ServerConfig holds HTTP server configuration for the daemon. There is
// deliberately no write timeout: extraction requests block until the run
// completes.
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	MetricsPort     int
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ToolsConfig holds the external tool binaries and their environment.
type ToolsConfig struct {
	FFmpegPath  string
	FFprobePath string
	// ExtraPath is prepended to PATH for spawned processes; used on
	// Windows to locate a bundled player.
	ExtraPath string
}

// PlayerConfig holds the media player command templates. %f is replaced
// by the video path, %t by the start timestamp.
type PlayerConfig struct {
	Command       string
	PausedCommand string
}

// ExtractorConfig holds extraction defaults and the cache root.
type ExtractorConfig struct {
	CacheRoot   string
	ThumbWidth  int
	Method      string
	FrameSkip   int
	TimeSkip    float64
	SceneThresh float64
	CustomVF    string
	GracePeriod time.Duration
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ffpreview")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Missing file is fine, defaults apply.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Default returns the built-in configuration without consulting a file.
func Default() *Config {
	setDefaults()
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("invalid built-in defaults: %v", err))
	}
	return &config
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.metricsPort", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stderr")

	// Tool defaults
	viper.SetDefault("tools.ffmpegPath", "ffmpeg")
	viper.SetDefault("tools.ffprobePath", "ffprobe")
	viper.SetDefault("tools.extraPath", "")

	// Player defaults
	viper.SetDefault("player.command", "mpv --start=%t %f")
	viper.SetDefault("player.pausedCommand", "mpv --start=%t --pause %f")

	// Extractor defaults
	viper.SetDefault("extractor.cacheRoot", defaultCacheRoot())
	viper.SetDefault("extractor.thumbWidth", 192)
	viper.SetDefault("extractor.method", "iframe")
	viper.SetDefault("extractor.frameSkip", 200)
	viper.SetDefault("extractor.timeSkip", 60.0)
	viper.SetDefault("extractor.sceneThresh", 0.2)
	viper.SetDefault("extractor.customVF", "")
	viper.SetDefault("extractor.gracePeriod", "3s")
}

func defaultCacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ffpreview")
	}
	return filepath.Join(os.TempDir(), "ffpreview")
}
