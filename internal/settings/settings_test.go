package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/convert"
)

func TestDefault(t *testing.T) {
	s := Default()

	if s.Network.InputPort != DefaultInputPort {
		t.Errorf("Expected input port %d, got %d", DefaultInputPort, s.Network.InputPort)
	}
	if s.Network.OutputHost != DefaultOutputHost || s.Network.OutputPort != DefaultOutputPort {
		t.Errorf("Unexpected output endpoint: %s:%d", s.Network.OutputHost, s.Network.OutputPort)
	}
	if !s.Conversions.Enabled {
		t.Error("Expected conversions enabled by default")
	}
	if s.Conversions.Altitude != convert.UnitMeters {
		t.Errorf("Expected source altitude unit by default, got %s", s.Conversions.Altitude)
	}
	if s.Recording.Enabled {
		t.Error("Expected recording disabled by default")
	}

	if err := s.Validate(); err != nil {
		t.Errorf("Default settings failed validation: %s", err)
	}
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "middleware.yaml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %s", err)
	}
	if s.Network.InputPort != DefaultInputPort {
		t.Errorf("Expected default settings, got input port %d", s.Network.InputPort)
	}

	if _, err = os.Stat(path); err != nil {
		t.Errorf("Expected default settings file to be created: %s", err)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "middleware.yaml")

	s := Default()
	s.Network.InputPort = 56000
	s.Network.OutputHost = "192.168.1.10"
	s.Conversions.Altitude = convert.UnitFeet
	s.Conversions.Speed = convert.UnitKnots
	s.Logging.Level = "debug"
	s.Recording.Enabled = true
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() failed: %s", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %s", err)
	}
	if loaded.Network.InputPort != 56000 || loaded.Network.OutputHost != "192.168.1.10" {
		t.Errorf("Network settings did not round-trip: %+v", loaded.Network)
	}
	if loaded.Conversions.Altitude != convert.UnitFeet || loaded.Conversions.Speed != convert.UnitKnots {
		t.Errorf("Conversion settings did not round-trip: %+v", loaded.Conversions)
	}
	if loaded.Logging.Level != "debug" || !loaded.Recording.Enabled {
		t.Errorf("Logging/recording settings did not round-trip: %+v %+v", loaded.Logging, loaded.Recording)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "middleware.yaml")

	partial := "network:\n  inputPort: 56001\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatalf("Writing settings file failed: %s", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %s", err)
	}
	if s.Network.InputPort != 56001 {
		t.Errorf("Expected input port 56001, got %d", s.Network.InputPort)
	}
	if s.Network.OutputPort != DefaultOutputPort {
		t.Errorf("Expected default output port, got %d", s.Network.OutputPort)
	}
	if s.Logging.MaxFiles != 5 {
		t.Errorf("Expected default log file cap, got %d", s.Logging.MaxFiles)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "middleware.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("Writing settings file failed: %s", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error loading malformed settings file")
	}
}

func TestSettings_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"input port zero", func(s *Settings) { s.Network.InputPort = 0 }, "input port"},
		{"output port out of range", func(s *Settings) { s.Network.OutputPort = 70000 }, "output port"},
		{"same ports", func(s *Settings) { s.Network.OutputPort = s.Network.InputPort }, "cannot be the same"},
		{"empty output host", func(s *Settings) { s.Network.OutputHost = "" }, "output host"},
		{"bad conversion unit", func(s *Settings) { s.Conversions.Speed = "parsecs" }, "speed"},
		{"file logging without path", func(s *Settings) { s.Logging.ToFile = true }, "log file path"},
		{"zero log files", func(s *Settings) { s.Logging.MaxFiles = 0 }, "log files"},
		{"zero log size", func(s *Settings) { s.Logging.MaxSizeMB = 0 }, "log size"},
		{"recording without directory", func(s *Settings) {
			s.Recording.Enabled = true
			s.Recording.DataDirectory = ""
		}, "data directory"},
		{"zero batch size", func(s *Settings) { s.Recording.MaxBatchSize = 0 }, "batch size"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(s)

			err := s.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestSettings_ValidateJoinsErrors(t *testing.T) {
	s := Default()
	s.Network.InputPort = 0
	s.Network.OutputHost = ""

	err := s.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"input port", "output host"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Joined error %q does not mention %q", err, want)
		}
	}
}
