package maestro

import "github.com/nerrad567/maestro-bridge/internal/discovery"

// Entities returns the discovery catalog for the stove.
func Entities() []discovery.Entity {
	out := make([]discovery.Entity, len(catalog))
	copy(out, catalog)
	return out
}

const (
	unitCelsius = "°C"
	iconThermo  = "mdi:thermometer"
	iconFire    = "mdi:fire"
	iconFan     = "mdi:fan"
	iconAuger   = "mdi:cog"

	classTemperature = "temperature"
	stateMeasurement = "measurement"
	stateTotal       = "total_increasing"
)

func temperatureSensor(key, name string) discovery.Entity {
	return discovery.Entity{
		Key:         key,
		Component:   discovery.ComponentSensor,
		Name:        name,
		Unit:        unitCelsius,
		Icon:        iconThermo,
		DeviceClass: classTemperature,
		StateClass:  stateMeasurement,
	}
}

func modeSwitch(key, name, icon string) discovery.Entity {
	return discovery.Entity{
		Key:          key,
		Component:    discovery.ComponentSwitch,
		Name:         name,
		Icon:         icon,
		Controllable: true,
		PayloadOn:    "1",
		PayloadOff:   "0",
	}
}

var catalog = []discovery.Entity{
	temperatureSensor("Ambient_Temperature", "Ambient Temperature"),
	temperatureSensor("Fume_Temperature", "Fume Temperature"),
	temperatureSensor("Puffer_Temperature", "Puffer Temperature"),
	temperatureSensor("Boiler_Temperature", "Boiler Temperature"),
	temperatureSensor("NTC3_Temperature", "NTC3 Temperature"),
	temperatureSensor("Temperature_Motherboard", "Motherboard Temperature"),
	temperatureSensor("Return_Temperature", "Return Temperature"),

	{Key: "Stove_State", Component: discovery.ComponentSensor, Name: "Stove State", Icon: iconFire, ValueTemplate: "{{ value }}"},
	{Key: KeyPowerLevel, Component: discovery.ComponentSensor, Name: "Power Level", Icon: iconFire, StateClass: stateMeasurement},
	{Key: "Fan_State", Component: discovery.ComponentSensor, Name: "Fan State", Icon: iconFan, StateClass: stateMeasurement},
	{Key: "DuctedFan1", Component: discovery.ComponentSensor, Name: "Ducted Fan 1", Icon: iconFan, StateClass: stateMeasurement},
	{Key: "DuctedFan2", Component: discovery.ComponentSensor, Name: "Ducted Fan 2", Icon: iconFan, StateClass: stateMeasurement},
	{Key: "RPM_Fam_Fume", Component: discovery.ComponentSensor, Name: "Fume Fan RPM", Unit: "rpm", Icon: iconFan, StateClass: stateMeasurement},
	{Key: "RPM_WormWheel_Set", Component: discovery.ComponentSensor, Name: "Auger Set RPM", Unit: "rpm", Icon: iconAuger, StateClass: stateMeasurement},
	{Key: "RPM_WormWheel_Live", Component: discovery.ComponentSensor, Name: "Auger Live RPM", Unit: "rpm", Icon: iconAuger, StateClass: stateMeasurement},
	{Key: "Candle_Condition", Component: discovery.ComponentSensor, Name: "Candle Condition", Icon: "mdi:candle", StateClass: stateMeasurement},
	{Key: "Brazier", Component: discovery.ComponentSensor, Name: "Brazier Status", Icon: iconFire},
	{Key: "3WayValve", Component: discovery.ComponentSensor, Name: "3-Way Valve", Icon: "mdi:valve"},
	{Key: "Pump_PWM", Component: discovery.ComponentSensor, Name: "Pump PWM", Unit: "%", Icon: "mdi:pump", StateClass: stateMeasurement},

	{Key: "Total_Operating_Hours", Component: discovery.ComponentSensor, Name: "Total Operating Hours", Icon: "mdi:clock", StateClass: stateTotal},
	{Key: "Hours_To_Service", Component: discovery.ComponentSensor, Name: "Hours to Service", Unit: "h", Icon: "mdi:wrench", StateClass: stateMeasurement},
	{Key: "Number_Of_Ignitions", Component: discovery.ComponentSensor, Name: "Number of Ignitions", Icon: iconFire, StateClass: stateTotal},
	{Key: "Pellet_Sensor", Component: discovery.ComponentSensor, Name: "Pellet Sensor", Icon: "mdi:grain"},

	modeSwitch("Power", "Power", "mdi:power"),
	modeSwitch("Active_Mode", "Active Mode", "mdi:auto-fix"),
	modeSwitch("Eco_Mode", "Eco Mode", "mdi:leaf"),
	modeSwitch("Silent_Mode", "Silent Mode", "mdi:volume-off"),
	modeSwitch("Sound_Effects", "Sound Effects", "mdi:volume-high"),
	modeSwitch("Chronostat", "Chronostat", "mdi:clock-outline"),
	modeSwitch("Control_Mode", "Control Mode (Manual)", "mdi:gesture-tap-button"),
	modeSwitch("AntiFreeze", "Anti-Freeze", "mdi:snowflake-off"),

	{
		Key: "Temperature_Setpoint", Component: discovery.ComponentNumber, Name: "Temperature Setpoint",
		Unit: unitCelsius, Icon: iconThermo, Controllable: true,
		Min: discovery.Float(10), Max: discovery.Float(30), Step: discovery.Float(0.5), Mode: "box",
	},
	{
		Key: "Boiler_Setpoint", Component: discovery.ComponentNumber, Name: "Boiler Setpoint",
		Unit: unitCelsius, Icon: iconThermo, Controllable: true,
		Min: discovery.Float(30), Max: discovery.Float(80), Step: discovery.Float(1), Mode: "box",
	},
	{
		Key: KeyPowerLevelControl, Component: discovery.ComponentNumber, Name: "Power Level",
		Icon: iconFire, Controllable: true, CommandKey: KeyPowerLevel,
		Min: discovery.Float(1), Max: discovery.Float(5), Step: discovery.Float(1), Mode: "box",
	},
}
