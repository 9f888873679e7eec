package maestro

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Entity keys derived from the active power level.
const (
	KeyPowerLevel        = "Power_Level"
	KeyPowerLevelControl = "Power_Level_Control"
)

// entityField maps a decoded field name to a published entity key.
type entityField struct {
	source  string
	key     string
	boolean bool
}

// entityFields is ordered so per-entity publications are deterministic.
var entityFields = []entityField{
	{source: "Temperature ambiante", key: "Ambient_Temperature"},
	{source: "Temperature des fumees", key: "Fume_Temperature"},
	{source: "Puffer Temperature", key: "Puffer_Temperature"},
	{source: "Temperature chaudiere", key: "Boiler_Temperature"},
	{source: "Temperature NTC3", key: "NTC3_Temperature"},
	{source: "TEMP - Carte mere", key: "Temperature_Motherboard"},
	{source: "Temperature retour", key: "Return_Temperature"},
	{source: fieldStoveState, key: "Stove_State"},
	{source: "Etat du ventilateur ambiance", key: "Fan_State"},
	{source: "Etat du ventilateur canalise 1", key: "DuctedFan1"},
	{source: "Etat du ventilateur canalise 2", key: "DuctedFan2"},
	{source: "RPM - Ventilateur fummees", key: "RPM_Fam_Fume"},
	{source: "RPM - Vis sans fin - SET", key: "RPM_WormWheel_Set"},
	{source: "RPM - Vis sans fin - LIVE", key: "RPM_WormWheel_Live"},
	{source: "Etat de la bougie", key: "Candle_Condition"},
	{source: "Brazero", key: "Brazier"},
	{source: "3WayValve", key: "3WayValve"},
	{source: "Pump_PWM", key: "Pump_PWM"},
	{source: "Heures de fonctionnement total (s)", key: "Total_Operating_Hours"},
	{source: "Heures avant entretien", key: "Hours_To_Service"},
	{source: "Nombre d'allumages", key: "Number_Of_Ignitions"},
	{source: "Sonde Pellets", key: "Pellet_Sensor"},
	{source: "Etat du mode Active", key: "Power", boolean: true},
	{source: "Mode ECO", key: "Eco_Mode", boolean: true},
	{source: "Silence", key: "Silent_Mode", boolean: true},
	{source: "Mode Chronotermostato", key: "Chronostat", boolean: true},
	{source: "Etat effets sonores", key: "Sound_Effects", boolean: true},
	{source: "Antigel", key: "AntiFreeze", boolean: true},
	{source: "TEMP - Consigne", key: "Temperature_Setpoint"},
	{source: "TEMP - Boiler", key: "Boiler_Setpoint"},
}

var powerLevelPattern = regexp.MustCompile(`Puissance (\d+)`)

// Reading is one value destined for a per-entity state topic.
type Reading struct {
	Key   string
	Value string
}

// MapSnapshot renames decoded fields to entity keys and formats their values.
// Absent fields are skipped. The power level is derived from the textual
// "Puissance N" label and reported under both the sensor and control keys.
func MapSnapshot(snap Snapshot) []Reading {
	readings := make([]Reading, 0, len(entityFields)+2)

	for _, f := range entityFields {
		value, ok := snap[f.source]
		if !ok {
			continue
		}
		if f.boolean {
			readings = append(readings, Reading{Key: f.key, Value: booleanValue(value)})
			continue
		}
		readings = append(readings, Reading{Key: f.key, Value: FormatValue(value)})
	}

	if level, ok := powerLevel(snap[fieldPowerActive]); ok {
		readings = append(readings,
			Reading{Key: KeyPowerLevel, Value: level},
			Reading{Key: KeyPowerLevelControl, Value: level},
		)
	}
	return readings
}

// powerLevel extracts N from a "Puissance N" label.
func powerLevel(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	m := powerLevelPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

// booleanValue coerces textual on/off forms to "1" or "0". Non-text values
// are formatted unchanged.
func booleanValue(value any) string {
	s, ok := value.(string)
	if !ok {
		return FormatValue(value)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "oui", "yes", "true":
		return "1"
	default:
		return "0"
	}
}

// FormatValue renders a snapshot value as a topic payload. Whole floats keep
// one decimal place ("22.0") so halved temperatures read consistently.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatFloat(v, 'f', 1, 64)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case UnknownCode:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
