package utils

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type LogLevel string

const (
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// NewLogger builds the process logger and installs it as the zerolog global.
func NewLogger(level, format string) (zerolog.Logger, error) {
	return newLogger(os.Stdout, level, format)
}

func newLogger(out io.Writer, level, format string) (zerolog.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var logger zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		logger = zerolog.New(out).With().Timestamp().Logger()
	case "", "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}

	logger = logger.Level(lvl)
	log.Logger = logger
	return logger, nil
}

func getColor(level LogLevel) int {
	switch level {
	case Info:
		return 3066993 // Green
	case Warn:
		return 15105570 // Orange
	case Error:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}

// sendLog mirrors an operational event to the configured Discord log channel.
func sendLog(s *discordgo.Session, channelID string, level LogLevel, module, operation, extraInfo string) error {
	if s == nil || channelID == "" {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title: string(level) + " Log",
		Color: getColor(level),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module},
			{Name: "Operation", Value: operation},
			{Name: "Details", Value: Truncate(extraInfo, 1024)},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func LogInfo(s *discordgo.Session, channelID, module, operation, extraInfo string) error {
	return sendLog(s, channelID, Info, module, operation, extraInfo)
}

func LogWarn(s *discordgo.Session, channelID, module, operation, extraInfo string) error {
	return sendLog(s, channelID, Warn, module, operation, extraInfo)
}

func LogError(s *discordgo.Session, channelID, module, operation, extraInfo string) error {
	return sendLog(s, channelID, Error, module, operation, extraInfo)
}

// InitSentry enables error reporting when a DSN is configured.
func InitSentry(dsn string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, TracesSampleRate: 0.25}); err != nil {
		return false, err
	}
	return true, nil
}

// ReportError sends an unexpected error to Sentry, tagged with the given
// context. It is a no-op when Sentry was not initialised.
func ReportError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// MaskKey hides all but the first four characters of an API key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..."
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
