package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global structured logger and returns it
func Setup() *slog.Logger {
	logger := slog.New(determineHandler())
	slog.SetDefault(logger)
	return logger
}

func determineHandler() slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     getLogLevel(),
		AddSource: os.Getenv("LOG_SOURCE") == "true",
	}

	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		return slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		return slog.NewTextHandler(os.Stdout, opts)
	default:
		// Lambda ships stdout to CloudWatch, which indexes JSON
		if isLambda() {
			return slog.NewJSONHandler(os.Stdout, opts)
		}
		return slog.NewTextHandler(os.Stdout, opts)
	}
}

func getLogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
