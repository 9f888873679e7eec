package discovery

// Component is a Home Assistant entity platform.
type Component string

// Supported components.
const (
	ComponentSensor Component = "sensor"
	ComponentSwitch Component = "switch"
	ComponentNumber Component = "number"
)

// Default switch payloads and states.
const (
	defaultPayloadOn  = "1"
	defaultPayloadOff = "0"
)

// Entity describes one discoverable sensor or control.
type Entity struct {
	Key           string
	Component     Component
	Name          string
	Unit          string
	Icon          string
	DeviceClass   string
	StateClass    string
	ValueTemplate string

	// Controllable entities advertise a command topic. CommandKey, when set,
	// replaces Key in that topic so two entities can share one command channel.
	Controllable bool
	CommandKey   string

	// Number bounds; nil leaves the Home Assistant default.
	Min  *float64
	Max  *float64
	Step *float64
	Mode string

	// Switch payloads; empty means "1"/"0".
	PayloadOn  string
	PayloadOff string
}

// Float returns a pointer to v, for Entity bounds.
func Float(v float64) *float64 {
	return &v
}

// DeviceInfo is the device block shared by every entity config.
type DeviceInfo struct {
	Identifiers   []string `json:"identifiers"`
	Name          string   `json:"name"`
	Manufacturer  string   `json:"manufacturer"`
	Model         string   `json:"model"`
	SWVersion     string   `json:"sw_version"`
	SuggestedArea string   `json:"suggested_area,omitempty"`
}

// EntityConfig is the retained discovery payload for one entity.
type EntityConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	ObjectID          string     `json:"object_id"`
	Device            DeviceInfo `json:"device"`
	AvailabilityTopic string     `json:"availability_topic"`
	StateTopic        string     `json:"state_topic"`

	Unit          string `json:"unit_of_measurement,omitempty"`
	Icon          string `json:"icon,omitempty"`
	DeviceClass   string `json:"device_class,omitempty"`
	StateClass    string `json:"state_class,omitempty"`
	ValueTemplate string `json:"value_template,omitempty"`
	CommandTopic  string `json:"command_topic,omitempty"`

	PayloadOn  string `json:"payload_on,omitempty"`
	PayloadOff string `json:"payload_off,omitempty"`
	StateOn    string `json:"state_on,omitempty"`
	StateOff   string `json:"state_off,omitempty"`

	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
	Mode string   `json:"mode,omitempty"`
}
