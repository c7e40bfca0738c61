// Package logger configures the global zerolog logger and carries request
// and game identifiers through contexts.
package logger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	gameIDKey    contextKey = "game_id"
)

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

const callerWidth = 30

// Options controls Init. Zero values fall back to the environment.
type Options struct {
	// Component is attached to every line (e.g. "server", "botmatch").
	Component string
	Level     string
	Out       io.Writer
}

// Init configures the global logger. LOG_LEVEL, LOG_FILE and DEV are read
// from the environment when Options leaves them unset.
func Init(opts Options) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.CallerMarshalFunc = fixedWidthCaller

	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv("LOG_LEVEL")
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: milliTimeFormat,
		NoColor:    !isDevelopmentMode(),
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			output = io.MultiWriter(output, f)
		}
	}

	ctx := log.Output(output).With().Timestamp().Caller()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}
	log.Logger = ctx.Logger()

	log.Info().
		Str("level", level.String()).
		Bool("dev", isDevelopmentMode()).
		Msg("Logger initialized")
}

// fixedWidthCaller pads or trims "file.go:123" to callerWidth so messages line up.
func fixedWidthCaller(_ uintptr, file string, line int) string {
	path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
	if len(path) >= callerWidth {
		return path[len(path)-callerWidth:]
	}
	return path + strings.Repeat(" ", callerWidth-len(path))
}

func isDevelopmentMode() bool {
	return os.Getenv("DEV") == "true" || os.Getenv("DEV_MODE") == "true"
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// NewRequestID generates a random 8-character alphanumeric id.
func NewRequestID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req%06d", time.Now().UnixNano()%1000000)
	}
	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithGameID tags the context with the game being worked on.
func WithGameID(ctx context.Context, gameID string) context.Context {
	return context.WithValue(ctx, gameIDKey, gameID)
}

// ForRequest returns a logger enriched with the request and game IDs found in ctx.
func ForRequest(ctx context.Context) zerolog.Logger {
	l := log.Logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.Str("requestId", id)
	}
	if id, _ := ctx.Value(gameIDKey).(string); id != "" {
		l = l.Str("gameId", id)
	}
	return l.Logger()
}

// ForGame returns a logger for a specific game and seat.
func ForGame(ctx context.Context, gameID string, seat int) zerolog.Logger {
	l := ForRequest(WithGameID(ctx, gameID)).With()
	if seat >= 0 {
		l = l.Int("seat", seat)
	}
	return l.Logger()
}

// LogBody logs a request or response body at debug level, truncated to 1000 bytes.
func LogBody(logger zerolog.Logger, field string, body []byte) {
	if len(body) == 0 {
		return
	}
	ev := logger.Debug()
	if len(body) > 1000 {
		body = body[:1000]
		ev = ev.Bool("truncated", true)
	}
	ev.Str(field, string(body)).Msg("Body")
}
