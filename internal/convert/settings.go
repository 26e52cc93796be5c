package convert

import "fmt"

// Settings holds the per-category target units and the master enable flag.
// A Settings value is treated as immutable once handed to the converter:
// callers publish updated preferences by swapping in a complete replacement,
// never by mutating a value another goroutine may be reading.
type Settings struct {
	Enabled      bool `yaml:"enabled"`
	Altitude     Unit `yaml:"altitude"`
	Speed        Unit `yaml:"speed"`
	Vario        Unit `yaml:"vario"`
	Acceleration Unit `yaml:"acceleration"`
}

// DefaultSettings returns settings that keep every category in its Condor
// source unit, with conversions enabled.
func DefaultSettings() Settings {
	return Settings{
		Enabled:      true,
		Altitude:     UnitMeters,
		Speed:        UnitMPS,
		Vario:        UnitMPS,
		Acceleration: UnitMPS2,
	}
}

// Target returns the configured target unit for a category.
func (s Settings) Target(c Category) Unit {
	switch c {
	case CategoryAltitude:
		return s.Altitude
	case CategorySpeed:
		return s.Speed
	case CategoryVario:
		return s.Vario
	case CategoryAcceleration:
		return s.Acceleration
	default:
		return ""
	}
}

// Validate checks that every configured target unit is one the category
// supports.
func (s Settings) Validate() error {
	for _, c := range []Category{CategoryAltitude, CategorySpeed, CategoryVario, CategoryAcceleration} {
		target := s.Target(c)
		if target == sourceUnits[c] {
			continue
		}
		if _, ok := conversionFactors[c][target]; !ok {
			return fmt.Errorf("invalid %s unit: %q", c, target)
		}
	}
	return nil
}
