// Package settings manages the middleware configuration file: defaults,
// loading, saving and validation. The bridge consumes a loaded Settings
// value; the CLI shell decides where the file lives.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/convert"
)

const (
	// DefaultInputPort is the port Condor sends telemetry to.
	DefaultInputPort = 55278

	// DefaultOutputHost and DefaultOutputPort address the downstream
	// consumer of the converted telemetry.
	DefaultOutputHost = "127.0.0.1"
	DefaultOutputPort = 55300
)

// Settings is the full middleware configuration.
type Settings struct {
	Network     NetworkSettings   `yaml:"network"`
	Conversions convert.Settings  `yaml:"conversions"`
	Logging     LogSettings       `yaml:"logging"`
	Recording   RecordingSettings `yaml:"recording"`
}

// NetworkSettings holds the UDP endpoint configuration.
type NetworkSettings struct {
	InputPort  int    `yaml:"inputPort"`
	OutputHost string `yaml:"outputHost"`
	OutputPort int    `yaml:"outputPort"`
}

// LogSettings holds the logging sink configuration. When ToFile is set the
// shell routes log output through a size/count-capped rotating file.
type LogSettings struct {
	Level     string `yaml:"level"`
	ToFile    bool   `yaml:"logToFile"`
	FilePath  string `yaml:"logFilePath"`
	MaxFiles  int    `yaml:"maxLogFiles"`
	MaxSizeMB int    `yaml:"maxLogSizeMB"`
}

// RecordingSettings configures the optional session recorder. Disabled by
// default; when disabled nothing is ever persisted.
type RecordingSettings struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// Default returns the settings used when no configuration file exists.
func Default() *Settings {
	return &Settings{
		Network: NetworkSettings{
			InputPort:  DefaultInputPort,
			OutputHost: DefaultOutputHost,
			OutputPort: DefaultOutputPort,
		},
		Conversions: convert.DefaultSettings(),
		Logging: LogSettings{
			Level:     "info",
			MaxFiles:  5,
			MaxSizeMB: 10,
		},
		Recording: RecordingSettings{
			DataDirectory: "data",
			MaxBatchSize:  100,
		},
	}
}

// Load reads settings from path. A missing file is not an error: the
// defaults are written to path and returned, so a first run leaves a
// template behind for the user to edit.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading settings file: %w", err)
		}

		s := Default()
		if err = s.Save(path); err != nil {
			return nil, fmt.Errorf("creating default settings file: %w", err)
		}
		return s, nil
	}

	s := Default()
	if err = yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	return s, nil
}

// Save writes the settings to path, creating parent directories as needed.
func (s *Settings) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating settings directory: %w", err)
		}
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	return nil
}

// Validate checks the settings for consistency. All problems found are
// joined into a single error.
func (s *Settings) Validate() error {
	var errs []error

	if s.Network.InputPort <= 0 || s.Network.InputPort > 65535 {
		errs = append(errs, fmt.Errorf("input port must be between 1 and 65535, got %d", s.Network.InputPort))
	}
	if s.Network.OutputPort <= 0 || s.Network.OutputPort > 65535 {
		errs = append(errs, fmt.Errorf("output port must be between 1 and 65535, got %d", s.Network.OutputPort))
	}
	if s.Network.InputPort == s.Network.OutputPort {
		errs = append(errs, errors.New("input and output ports cannot be the same"))
	}
	if s.Network.OutputHost == "" {
		errs = append(errs, errors.New("output host cannot be empty"))
	}

	if err := s.Conversions.Validate(); err != nil {
		errs = append(errs, err)
	}

	if s.Logging.ToFile && s.Logging.FilePath == "" {
		errs = append(errs, errors.New("log file path must be set when logging to file"))
	}
	if s.Logging.MaxFiles <= 0 {
		errs = append(errs, errors.New("maximum log files must be positive"))
	}
	if s.Logging.MaxSizeMB <= 0 {
		errs = append(errs, errors.New("maximum log size must be positive"))
	}

	if s.Recording.Enabled && s.Recording.DataDirectory == "" {
		errs = append(errs, errors.New("recording data directory cannot be empty"))
	}
	if s.Recording.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("recording batch size must be positive"))
	}

	return errors.Join(errs...)
}
