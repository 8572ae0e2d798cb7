package logging

// LoggerConfig holds logger configuration for a single DupeFoundry process.
//
// This is deliberately narrower than the profile/middleware/policy system
// the config format supports elsewhere in the Fulmen ecosystem: DupeFoundry
// is a library plus a thin CLI driver, not a long-running service, so it
// has a stderr sink, an optional rotating file sink (File), and one
// severity threshold.
type LoggerConfig struct {
	DefaultLevel     string         `json:"defaultLevel" yaml:"defaultLevel"`
	Service          string         `json:"service" yaml:"service"`
	Component        string         `json:"component,omitempty" yaml:"component,omitempty"`
	Environment      string         `json:"environment" yaml:"environment"`
	StaticFields     map[string]any `json:"staticFields,omitempty" yaml:"staticFields,omitempty"`
	EnableCaller     bool           `json:"enableCaller" yaml:"enableCaller"`
	EnableStacktrace bool           `json:"enableStacktrace" yaml:"enableStacktrace"`
	File             *FileSinkConfig `json:"file,omitempty" yaml:"file,omitempty"`
}

// FileSinkConfig configures an optional rotating file sink, layered on top
// of the always-present stderr console sink.
type FileSinkConfig struct {
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"maxSize" yaml:"maxSize"`
	MaxAgeDays int    `json:"maxAge" yaml:"maxAge"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// DefaultConfig returns a logger configuration for a CLI tool: INFO level,
// stderr only, JSON encoding.
func DefaultConfig(service string) *LoggerConfig {
	return &LoggerConfig{
		DefaultLevel: "INFO",
		Service:      service,
		Environment:  "development",
		StaticFields: make(map[string]any),
	}
}
