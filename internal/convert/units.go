package convert

// Category identifies the kind of physical quantity a telemetry variable
// carries. Condor emits every quantity in metric source units; a category
// determines which target units are available for it.
type Category string

const (
	CategoryAltitude     Category = "altitude"
	CategorySpeed        Category = "speed"
	CategoryVario        Category = "vario"
	CategoryAcceleration Category = "acceleration"
)

// Unit is a unit of measure a category can be converted to.
type Unit string

const (
	UnitMeters Unit = "meters"
	UnitFeet   Unit = "feet"
	UnitMPS    Unit = "mps"
	UnitKMH    Unit = "kmh"
	UnitKnots  Unit = "knots"
	UnitFPM    Unit = "fpm"
	UnitMPS2   Unit = "mps2"
	UnitFPS2   Unit = "fps2"
)

// variableCategories maps Condor variable names to their conversion category.
// Variables not present here pass through untouched.
var variableCategories = map[string]Category{
	"altitude":    CategoryAltitude,
	"height":      CategoryAltitude,
	"wheelheight": CategoryAltitude,

	"airspeed": CategorySpeed,
	"vx":       CategorySpeed,
	"vy":       CategorySpeed,
	"vz":       CategorySpeed,

	"vario":      CategoryVario,
	"evario":     CategoryVario,
	"nettovario": CategoryVario,

	"ax": CategoryAcceleration,
	"ay": CategoryAcceleration,
	"az": CategoryAcceleration,
}

// sourceUnits maps each category to the unit Condor natively emits it in.
// Requesting the source unit as a target is a no-op.
var sourceUnits = map[Category]Unit{
	CategoryAltitude:     UnitMeters,
	CategorySpeed:        UnitMPS,
	CategoryVario:        UnitMPS,
	CategoryAcceleration: UnitMPS2,
}

// conversionFactors holds the multiplier from a category's source unit to
// each supported target unit.
var conversionFactors = map[Category]map[Unit]float64{
	CategoryAltitude: {
		UnitFeet: 3.28084,
	},
	CategorySpeed: {
		UnitKMH:   3.6,
		UnitKnots: 1.94384,
	},
	CategoryVario: {
		UnitFPM: 196.85,
	},
	CategoryAcceleration: {
		UnitFPS2: 3.28084,
	},
}

// Units returns the units a category can be rendered in, the source unit
// first. Returns nil for an unknown category.
func Units(c Category) []Unit {
	source, ok := sourceUnits[c]
	if !ok {
		return nil
	}

	units := []Unit{source}
	for unit := range conversionFactors[c] {
		units = append(units, unit)
	}
	return units
}

// VariableCategory returns the conversion category of a variable name and
// whether the variable is mapped at all.
func VariableCategory(name string) (Category, bool) {
	c, ok := variableCategories[name]
	return c, ok
}

// SupportedVariables returns the names of all variables the converter knows
// how to convert.
func SupportedVariables() []string {
	names := make([]string, 0, len(variableCategories))
	for name := range variableCategories {
		names = append(names, name)
	}
	return names
}
