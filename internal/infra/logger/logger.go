package logger

import (
	"log/slog"
	"os"
)

// New собирает JSON-логгер процесса. В dev включается debug-уровень,
// чтобы видеть повторы запросов к WB.
func New(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "wb-seller-bot")
}
