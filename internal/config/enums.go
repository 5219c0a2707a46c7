package config

import (
	"log/slog"
	"slices"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SlogLevel maps the level onto slog. Unknown values log at info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// StorageBackend names a blob store implementation.
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageSQLite StorageBackend = "sqlite"
	StorageNATS   StorageBackend = "nats"
	StorageMemory StorageBackend = "memory"
)

// RadioBackend names a radio driver.
type RadioBackend string

const (
	RadioNetworkManager RadioBackend = "nm"
	RadioSimulated      RadioBackend = "sim"
)

// enum normalizes free-form strings onto a closed set of values.
type enum[T ~string] struct {
	values  map[string]T
	aliases map[string]T
}

func newEnum[T ~string](aliases map[string]T, values ...T) enum[T] {
	e := enum[T]{values: make(map[string]T, len(values)), aliases: aliases}
	for _, v := range values {
		e.values[string(v)] = v
	}
	return e
}

// normalize case-folds raw and resolves aliases. Unknown values are returned
// cleaned but otherwise untouched so validation can report them.
func (e enum[T]) normalize(raw T) T {
	cleaned := strings.ToLower(strings.TrimSpace(string(raw)))
	if v, ok := e.values[cleaned]; ok {
		return v
	}
	if v, ok := e.aliases[cleaned]; ok {
		return v
	}
	return T(cleaned)
}

func (e enum[T]) valid(v T) bool {
	_, ok := e.values[string(v)]
	return ok
}

func (e enum[T]) names() []string {
	out := make([]string, 0, len(e.values))
	for k := range e.values {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

var (
	logLevels = newEnum(map[string]LogLevel{"warning": LogLevelWarn},
		LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)
	logFormats      = newEnum(nil, LogFormatText, LogFormatJSON)
	storageBackends = newEnum(map[string]StorageBackend{"sqlite3": StorageSQLite, "jetstream": StorageNATS},
		StorageFile, StorageSQLite, StorageNATS, StorageMemory)
	radioBackends = newEnum(map[string]RadioBackend{"networkmanager": RadioNetworkManager, "simulated": RadioSimulated},
		RadioNetworkManager, RadioSimulated)
)

func normalize(cfg *Config) {
	cfg.Logging.Level = logLevels.normalize(cfg.Logging.Level)
	cfg.Logging.Format = logFormats.normalize(cfg.Logging.Format)
	cfg.Storage.Backend = storageBackends.normalize(cfg.Storage.Backend)
	cfg.Radio.Backend = radioBackends.normalize(cfg.Radio.Backend)
}
