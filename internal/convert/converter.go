// Package convert implements the unit conversion engine for Condor telemetry
// payloads. It parses key=value telemetry text, rewrites values of mapped
// variables into the configured target units and re-serializes the payload in
// the exact wire shape downstream consumers of Condor's native output expect.
package convert

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// pairPattern matches a single identifier=number telemetry pair. The numeric
// part accepts an optional sign, fraction and exponent.
var pairPattern = regexp.MustCompile(`([a-zA-Z_]+)=([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)`)

// Pair is one ordered variable/value pair extracted from a payload.
type Pair struct {
	Name  string
	Value float64
}

// Detail describes a single applied conversion.
type Detail struct {
	Original   float64
	Converted  float64
	Category   Category
	TargetUnit Unit
}

// Record reports what Process did to one payload. It is transient: callers
// inspect it, fold it into their own counters and discard it.
type Record struct {
	// Applied is the number of value conversions performed.
	Applied int

	// Variables lists the names of the converted variables, in payload order.
	Variables []string

	// Details holds per-variable conversion detail, keyed by variable name.
	Details map[string]Detail

	// Pairs holds every parsed pair in payload order, values already
	// converted. Empty when NoPairs is set.
	Pairs []Pair

	// NoPairs is set when the payload contained no key=value pairs and was
	// returned unchanged.
	NoPairs bool
}

// WithLogger sets the logger for the converter.
func WithLogger(logger *slog.Logger) func(*Converter) {
	return func(c *Converter) {
		c.logger = logger.With(slog.String("component", "converter"))
	}
}

// Converter rewrites telemetry payloads according to a Settings snapshot.
// Process is safe for concurrent use; the running statistics are guarded
// internally.
type Converter struct {
	logger *slog.Logger

	mu            sync.Mutex
	totalApplied  uint64
	everConverted map[string]struct{}
}

// New creates a Converter with a discard logger.
func New(options ...func(*Converter)) *Converter {
	c := Converter{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		everConverted: make(map[string]struct{}),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Process parses text, converts every mapped variable per the settings
// snapshot and returns the rebuilt payload together with a record of the
// conversions applied. The snapshot must not be mutated while Process runs;
// publish updates by swapping in a new Settings value instead.
//
// A payload with no recognizable pairs is returned unchanged with
// Record.NoPairs set. A pair whose value fails numeric parsing is kept with
// value 0 and logged as a warning.
func (c *Converter) Process(text string, s *Settings) (string, *Record) {
	matches := pairPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, &Record{NoPairs: true}
	}

	record := Record{
		Details: make(map[string]Detail),
		Pairs:   make([]Pair, 0, len(matches)),
	}

	for _, m := range matches {
		name, raw := m[1], m[2]

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.logger.Warn("could not parse value, defaulting to 0",
				slog.String("variable", name),
				slog.String("value", raw))
			value = 0
		}

		converted, detail := c.convertPair(name, value, s)
		if detail != nil {
			record.Applied++
			record.Variables = append(record.Variables, name)
			record.Details[name] = *detail
		}

		record.Pairs = append(record.Pairs, Pair{Name: name, Value: converted})
	}

	if record.Applied > 0 {
		c.mu.Lock()
		c.totalApplied += uint64(record.Applied)
		for _, name := range record.Variables {
			c.everConverted[name] = struct{}{}
		}
		c.mu.Unlock()
	}

	return rebuild(record.Pairs), &record
}

// convertPair resolves and applies the conversion for a single pair. The
// second return is nil when the value passed through unchanged.
func (c *Converter) convertPair(name string, value float64, s *Settings) (float64, *Detail) {
	if s == nil || !s.Enabled {
		return value, nil
	}

	category, ok := variableCategories[name]
	if !ok {
		return value, nil
	}

	target := s.Target(category)
	if target == "" || target == sourceUnits[category] {
		return value, nil
	}

	factor, ok := conversionFactors[category][target]
	if !ok {
		c.logger.Warn(fmt.Sprintf("unknown %s unit: %s", category, target),
			slog.String("variable", name))
		return value, nil
	}

	converted := value * factor
	c.logger.Debug("converted variable",
		slog.String("variable", name),
		slog.Float64("original", value),
		slog.Float64("converted", converted),
		slog.String("unit", string(target)))

	return converted, &Detail{
		Original:   value,
		Converted:  converted,
		Category:   category,
		TargetUnit: target,
	}
}

// rebuild serializes pairs back into wire format: key=value lines joined and
// terminated by CRLF, values rendered with up to 15 significant digits to
// match Condor's native output precision.
func rebuild(pairs []Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s=%.15g\r\n", p.Name, p.Value)
	}
	return b.String()
}

// Statistics is a point-in-time snapshot of the converter's running totals.
type Statistics struct {
	TotalConversions uint64
	Variables        []string // distinct variables ever converted, sorted
}

// Statistics returns the current running totals.
func (c *Converter) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	vars := make([]string, 0, len(c.everConverted))
	for name := range c.everConverted {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	return Statistics{
		TotalConversions: c.totalApplied,
		Variables:        vars,
	}
}

// ResetStatistics clears the running totals.
func (c *Converter) ResetStatistics() {
	c.mu.Lock()
	c.totalApplied = 0
	clear(c.everConverted)
	c.mu.Unlock()

	c.logger.Info("conversion statistics reset")
}

// ConvertibleVariables returns the mapped variable names present in a
// payload, in payload order.
func ConvertibleVariables(text string) []string {
	var names []string
	for _, m := range pairPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := variableCategories[m[1]]; ok {
			names = append(names, m[1])
		}
	}
	return names
}
