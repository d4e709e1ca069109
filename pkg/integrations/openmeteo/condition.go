package openmeteo

// Condition is the display category of a WMO weather code.
type Condition string

const (
	Clear        Condition = "clear"
	PartlyCloudy Condition = "partly-cloudy"
	Cloudy       Condition = "cloudy"
	Rain         Condition = "rain"
	Snow         Condition = "snow"
	Thunder      Condition = "thunder"
)

// Conditions lists every category in display order.
var Conditions = []Condition{Clear, PartlyCloudy, Cloudy, Rain, Snow, Thunder}

// wmoConditions maps WMO 4677 present-weather codes as reported by
// Open-Meteo to display categories.
var wmoConditions = map[int]Condition{
	0:  Clear,
	1:  Clear,
	2:  PartlyCloudy,
	3:  Cloudy,
	45: Cloudy,
	48: Cloudy,
	51: Rain,
	53: Rain,
	55: Rain,
	56: Rain,
	57: Rain,
	61: Rain,
	63: Rain,
	65: Rain,
	66: Rain,
	67: Rain,
	71: Snow,
	73: Snow,
	75: Snow,
	77: Snow,
	80: Rain,
	81: Rain,
	82: Rain,
	85: Snow,
	86: Snow,
	95: Thunder,
	96: Thunder,
	99: Thunder,
}

// ConditionFor returns the display category for a WMO code.
// Unknown codes map to Clear.
func ConditionFor(code int) Condition {
	if c, ok := wmoConditions[code]; ok {
		return c
	}
	return Clear
}

// Wet reports whether the condition has falling precipitation.
func (c Condition) Wet() bool {
	return c == Rain || c == Snow || c == Thunder
}
