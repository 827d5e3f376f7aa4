package log

import (
	"log/slog"
	"time"
)

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Workflow[T ~string](name T) slog.Attr {
	return slog.String("workflow", string(name))
}

func Step[T ~string](name T) slog.Attr {
	return slog.String("step", string(name))
}

func Group[T ~string](name T) slog.Attr {
	return slog.String("group", string(name))
}

func Capability[T ~string](name T) slog.Attr {
	return slog.String("capability", string(name))
}

func Operation[T ~string](name T) slog.Attr {
	return slog.String("operation", string(name))
}

func Key[T ~string](key T) slog.Attr {
	return slog.String("key", string(key))
}

func Preset[T ~string](name T) slog.Attr {
	return slog.String("preset", string(name))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Elapsed(d time.Duration) slog.Attr {
	return slog.Duration("elapsed", d)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
