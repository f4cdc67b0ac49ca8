package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger with field helpers for
// this tool's domain.
type Logger struct {
	logger zerolog.Logger
}

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, file path
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg Config) (*Logger, error) {
	var output io.Writer

	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		output = file
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return &Logger{logger: logger}, nil
}

// NewConsoleLogger creates a logger with console output for CLI use.
func NewConsoleLogger(level string) (*Logger, error) {
	return NewLogger(Config{Level: level, Format: "console", Output: "stderr"})
}

// WithVideo tags log entries with the video file being processed.
func (l *Logger) WithVideo(path string) *Logger {
	return &Logger{logger: l.logger.With().Str("video", path).Logger()}
}

// WithRunID tags log entries with the extraction run id.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{logger: l.logger.With().Str("run_id", runID).Logger()}
}

// WithMethod tags log entries with the selection method.
func (l *Logger) WithMethod(method string) *Logger {
	return &Logger{logger: l.logger.With().Str("method", method).Logger()}
}

// WithError adds an error to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// ErrorWithErr logs an error message with an error.
func (l *Logger) ErrorWithErr(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Fatalf logs a formatted fatal message and exits.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal().Msgf(format, args...)
}

// LogExtractionProgress logs incremental extraction progress.
func (l *Logger) LogExtractionProgress(video string, ts, duration float64, count int) {
	l.logger.Debug().
		Str("video", video).
		Float64("timestamp", ts).
		Float64("duration", duration).
		Int("thumbnails", count).
		Msg("Extraction progress")
}

// LogProbeFallback logs that a probe strategy failed and the next one is
// being attempted.
func (l *Logger) LogProbeFallback(video, failed, next string, err error) {
	l.logger.Debug().
		Str("video", video).
		Str("failed_strategy", failed).
		Str("next_strategy", next).
		Err(err).
		Msg("Probe fallback")
}

// LogCacheDecision logs a reuse-vs-rebuild decision.
func (l *Logger) LogCacheDecision(video string, hit bool, reason string) {
	l.logger.Info().
		Str("video", video).
		Bool("cache_hit", hit).
		Str("reason", reason).
		Msg("Cache decision")
}
